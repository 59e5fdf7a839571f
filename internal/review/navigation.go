package review

// FocusKind describes what currently holds keyboard focus.
type FocusKind int

// Focus kinds. Everything except FocusNone edits text or choices and keeps
// the arrow keys for itself.
const (
	FocusNone FocusKind = iota
	FocusTextInput
	// The terminal UI only produces FocusNone and FocusTextInput. The kinds
	// below are for front-ends with richer form controls.
	FocusTextArea
	FocusSelect
	FocusContentEditable
)

// CapturesArrows reports whether the focused element uses arrow keys.
func (f FocusKind) CapturesArrows() bool {
	return f != FocusNone
}

// Direction is a navigation request.
type Direction int

// Directions.
const (
	DirectionPrev Direction = iota
	DirectionNext
)

// Navigable is anything that can move between items.
type Navigable interface {
	Prev()
	Next()
}

// KeyRouter delivers previous/next navigation to the registered context.
// Only one context is registered at a time.
type KeyRouter struct {
	target Navigable
	focus  FocusKind
	token  int
}

// Register installs target and returns a function that removes it again.
// The returned function is a no-op if another target replaced this one.
func (r *KeyRouter) Register(target Navigable) (unregister func()) {
	r.token++
	token := r.token
	r.target = target
	return func() {
		if r.token == token {
			r.target = nil
		}
	}
}

// Active reports whether a navigable context is registered.
func (r *KeyRouter) Active() bool {
	return r.target != nil
}

// SetFocus records what holds keyboard focus.
func (r *KeyRouter) SetFocus(focus FocusKind) {
	r.focus = focus
}

// Focus returns what holds keyboard focus.
func (r *KeyRouter) Focus() FocusKind {
	return r.focus
}

// Route delivers dir to the registered context. It returns false when
// nothing is registered or the focused element keeps the arrow keys.
func (r *KeyRouter) Route(dir Direction) bool {
	if r.target == nil || r.focus.CapturesArrows() {
		return false
	}
	switch dir {
	case DirectionPrev:
		r.target.Prev()
	case DirectionNext:
		r.target.Next()
	default:
		return false
	}
	return true
}
