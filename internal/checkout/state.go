package checkout

import "fmt"

// State is a checkout flow screen.
type State int

const (
	// Browsing shows the product list.
	Browsing State = iota
	// Editing shows the cart, empty or not.
	Editing
	// Confirmed shows the order confirmation until acknowledged.
	Confirmed
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case Editing:
		return "editing"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Intent names a user action dispatched into the flow.
type Intent string

const (
	IntentSelect      Intent = "select"
	IntentSelectAll   Intent = "select_all"
	IntentIncrease    Intent = "increase"
	IntentConfirm     Intent = "confirm"
	IntentAcknowledge Intent = "acknowledge"
	IntentBrowse      Intent = "browse"
	IntentViewCart    Intent = "view_cart"
)

// Intents lists every intent in a stable order.
func Intents() []Intent {
	return []Intent{IntentSelect, IntentSelectAll, IntentIncrease, IntentConfirm, IntentAcknowledge, IntentBrowse, IntentViewCart}
}

// allowed maps each intent to the single state it is accepted in.
var allowed = map[Intent]State{
	IntentSelect:      Browsing,
	IntentSelectAll:   Browsing,
	IntentIncrease:    Editing,
	IntentConfirm:     Editing,
	IntentBrowse:      Editing,
	IntentViewCart:    Browsing,
	IntentAcknowledge: Confirmed,
}
