package expand

// removeQuotes is the final expansion step. By the time a field reaches
// this step, quote *characters* have already been stripped during
// tokenization (single/double-quoted segments store their bare contents),
// so this pass returns s unchanged; backslashes left in the text are not
// removed here.
func removeQuotes(s string) string {
	return s
}
