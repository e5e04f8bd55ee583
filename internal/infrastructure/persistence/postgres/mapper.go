package postgres

// Коды value_type элементов мониторинга
const (
	valueTypeFloat    = 0
	valueTypeString   = 1
	valueTypeLog      = 2
	valueTypeUnsigned = 3
	valueTypeText     = 4
)

// historyTable returns the history table of a value type and whether its
// values are numeric.
func historyTable(valueType int) (table string, numeric bool, ok bool) {
	switch valueType {
	case valueTypeFloat:
		return "history", true, true
	case valueTypeUnsigned:
		return "history_uint", true, true
	case valueTypeString:
		return "history_str", false, true
	case valueTypeLog:
		return "history_log", false, true
	case valueTypeText:
		return "history_text", false, true
	default:
		return "", false, false
	}
}
