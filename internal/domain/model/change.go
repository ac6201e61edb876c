package model

// ChangeKind is the operation a change event describes.
type ChangeKind int

const (
	ChangeUpsert ChangeKind = iota + 1
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUpsert:
		return "upsert"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeEvent is a decoded store mutation. Delete events only carry Item.ID.
type ChangeEvent struct {
	Kind ChangeKind
	Item Item
}
