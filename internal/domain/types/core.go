package types

// Label names a watched script. Labels are unique within a watch-list.
type Label string

// String returns the string form of the label.
func (l Label) String() string { return string(l) }
