package utils

// GetStringAttr reads a string-valued span attribute, returning "" when the
// key is absent or holds a non-string value.
func GetStringAttr(attributes map[string]interface{}, key string) string {
	value, _ := attributes[key].(string)
	return value
}

// GetSpanAttrValue reads a typed span attribute, returning nil when the key
// is absent or the value has a different type. JSON-decoded numbers arrive
// as float64.
func GetSpanAttrValue[T string | float64 | bool](attributes map[string]interface{}, key string) *T {
	if value, ok := attributes[key]; ok {
		if typed, ok := value.(T); ok {
			return &typed
		}
	}
	return nil
}
