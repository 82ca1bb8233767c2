package bot

import (
	"fmt"
	"slices"
	"strings"
)

const (
	callbackLanguagePrefix = "lang:"
	callbackTranslate      = "translate"
	callbackCancel         = "cancel"

	menuColumns  = 3
	selectedMark = "✅ "
)

// LanguageMenu renders the catalog as a keyboard. Selected languages are
// marked, and the last row holds the translate and cancel actions.
func LanguageMenu(catalog *Catalog, selected []string) *Menu {
	menu := &Menu{}
	var row []Button
	for _, lang := range catalog.Languages() {
		label := lang.Name
		if slices.Contains(selected, lang.Code) {
			label = selectedMark + label
		}
		row = append(row, Button{Text: label, Data: callbackLanguagePrefix + lang.Code})
		if len(row) == menuColumns {
			menu.Rows = append(menu.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		menu.Rows = append(menu.Rows, row)
	}
	menu.Rows = append(menu.Rows, []Button{
		{Text: "Translate", Data: callbackTranslate},
		{Text: "Cancel", Data: callbackCancel},
	})
	return menu
}

// selectionText is the message shown above the language menu
func selectionText(catalog *Catalog, selected []string) string {
	if len(selected) == 0 {
		return "Choose the target languages, then press Translate."
	}
	return fmt.Sprintf("Selected: %s\nPress Translate when ready.", strings.Join(catalog.Names(selected), ", "))
}

// languageListText lists every language with its code so it can be typed
// instead of tapped.
func languageListText(catalog *Catalog, selected []string) string {
	var b strings.Builder
	b.WriteString("Available languages (type a code or name to toggle it):\n")
	for _, lang := range catalog.Languages() {
		mark := ""
		if slices.Contains(selected, lang.Code) {
			mark = " " + strings.TrimSpace(selectedMark)
		}
		fmt.Fprintf(&b, "%s - %s%s\n", lang.Code, lang.Name, mark)
	}
	return strings.TrimRight(b.String(), "\n")
}
