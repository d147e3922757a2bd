package session

import "strings"

// InputRouter maps keyboard shortcuts onto controller actions. Shortcuts are
// inert while a text field has focus and outside the question view.
type InputRouter struct {
	ctrl *Controller
}

func NewInputRouter(ctrl *Controller) *InputRouter {
	return &InputRouter{ctrl: ctrl}
}

// HandleKey applies key and reports whether it was consumed.
func (r *InputRouter) HandleKey(key string, textFocused bool) bool {
	if textFocused || r.ctrl.State() != StateQuestion {
		return false
	}

	switch key {
	case "ArrowRight":
		return r.ctrl.Next() == nil
	case "ArrowLeft":
		return r.ctrl.Prev() == nil
	}

	if len(key) != 1 {
		return false
	}
	option := strings.ToUpper(key)
	if option < "A" || option > "D" {
		return false
	}
	q := r.ctrl.CurrentQuestion()
	if q == nil || !q.HasOption(option) {
		return false
	}
	return r.ctrl.Answer(q.ID, option) == nil
}
