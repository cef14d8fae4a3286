package multiselect

// Option is one selectable value. Tag carries a grouping such as a book's
// class, used to narrow long option lists.
type Option struct {
	Value string
	Label string
	Tag   string
}

// Toggle returns a new selection with value added if absent or removed if
// present. The input slice is not modified; order is insertion order.
func Toggle(selected []string, value string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, v := range selected {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	return out
}

// Contains reports whether value is selected.
func Contains(selected []string, value string) bool {
	for _, v := range selected {
		if v == value {
			return true
		}
	}
	return false
}

// Tokens renders the selection as display tokens: the option label, or the
// raw value when no option matches.
func Tokens(options []Option, selected []string) []string {
	labels := make(map[string]string, len(options))
	for _, o := range options {
		labels[o.Value] = o.Label
	}
	out := make([]string, len(selected))
	for i, v := range selected {
		if l := labels[v]; l != "" {
			out[i] = l
		} else {
			out[i] = v
		}
	}
	return out
}

// ByTag returns the options carrying tag. An empty tag returns all options.
func ByTag(options []Option, tag string) []Option {
	if tag == "" {
		return options
	}
	var out []Option
	for _, o := range options {
		if o.Tag == tag {
			out = append(out, o)
		}
	}
	return out
}

// Without returns options whose value is not in exclude.
func Without(options []Option, exclude map[string]bool) []Option {
	var out []Option
	for _, o := range options {
		if !exclude[o.Value] {
			out = append(out, o)
		}
	}
	return out
}
