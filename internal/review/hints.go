package review

// Hint is a presentation hint for a field label
type Hint string

const (
	HintCalendar Hint = "calendar"
	HintCurrency Hint = "currency"
	HintHash     Hint = "hash"
	HintBuilding Hint = "building"
	HintUsers    Hint = "users"
	HintDocument Hint = "document-id"
	HintText     Hint = "text"
)

var hints = map[string]Hint{
	"Date":           HintCalendar,
	"Amount":         HintCurrency,
	"Invoice Number": HintHash,
	"Seller":         HintBuilding,
	"Client":         HintUsers,
	"Tax ID":         HintDocument,
}

// HintFor looks up the hint for a label, falling back to HintText
func HintFor(label string) Hint {
	if h, ok := hints[label]; ok {
		return h
	}
	return HintText
}
