package provider

// Defensive extraction over third-party response shapes that are not
// contractually stable. Each accessor degrades to the zero value instead of
// failing when the shape does not match.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// firstURL accepts the provider's two observed encodings of a url field:
// a plain string or an array of strings.
func firstURL(v any) string {
	switch u := v.(type) {
	case string:
		return u
	case []any:
		if len(u) > 0 {
			if s, ok := u[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// urlStrategy is one way of locating a result URL in a response item.
type urlStrategy func(item map[string]any) string

// videoURLStrategies is the fixed-priority list of known places a video URL
// has been observed. First match wins; extending this list is the intended
// way to absorb future provider shape drift.
var videoURLStrategies = []urlStrategy{
	// 1. Nested result object, primary path from the provider docs.
	func(item map[string]any) string {
		result := asMap(item["result"])
		if videos := asList(result["videos"]); len(videos) > 0 {
			return firstURL(asMap(videos[0])["url"])
		}
		return ""
	},
	func(item map[string]any) string {
		result := asMap(item["result"])
		if images := asList(result["images"]); len(images) > 0 {
			return firstURL(asMap(images[0])["url"])
		}
		return ""
	},
	// 2. Flat top-level fallbacks.
	func(item map[string]any) string { return str(item, "video_url") },
	func(item map[string]any) string { return str(item, "url") },
	func(item map[string]any) string { return str(asMap(item["output"]), "url") },
	func(item map[string]any) string { return str(item, "result_url") },
}

// extractVideoURL returns the first matching URL, or "" when nothing
// matches. A missing URL means "not yet available", never an error.
func extractVideoURL(item map[string]any) string {
	if item == nil {
		return ""
	}
	for _, strategy := range videoURLStrategies {
		if u := strategy(item); u != "" {
			return u
		}
	}
	return ""
}
