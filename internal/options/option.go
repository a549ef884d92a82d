// Package options edits a room's creation settings on a grid of panels
// before the room is created.
package options

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is an option's value type, as named by the server.
type Kind string

const (
	KindInt  Kind = "int"
	KindBool Kind = "bool"
	KindList Kind = "list"
	KindTime Kind = "time" // seconds
	KindText Kind = "text"
	KindStr  Kind = "str" // same as KindText
)

// ErrUnknownKind is returned for an option type the editor cannot edit.
var ErrUnknownKind = errors.New("options: unknown option type")

// timeStep is how far one key press moves a time option.
const timeStep = 10

// Spec describes one creation setting.
type Spec struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Kind    Kind     `json:"type"`
	Default any      `json:"default"`
	Cords   [2]int   `json:"cords"` // [row, col]
	Choices []string `json:"options,omitempty"`
}

// Option is a Spec with its current value.
type Option struct {
	Spec Spec

	num   int
	flag  bool
	text  string
	index int
}

func newOption(s Spec) (*Option, error) {
	o := &Option{Spec: s}
	switch s.Kind {
	case KindInt, KindTime:
		n, err := asInt(s.Default)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", s.ID, err)
		}
		o.num = n
	case KindBool:
		b, _ := s.Default.(bool)
		o.flag = b
	case KindList:
		if len(s.Choices) == 0 {
			return nil, fmt.Errorf("option %s: list without choices", s.ID)
		}
		def, _ := s.Default.(string)
		for i, c := range s.Choices {
			if c == def {
				o.index = i
			}
		}
	case KindText, KindStr:
		o.text, _ = s.Default.(string)
	default:
		return nil, fmt.Errorf("%w: %q (option %s)", ErrUnknownKind, s.Kind, s.ID)
	}
	return o, nil
}

// asInt accepts the numeric forms a default can arrive in: Go literals and
// JSON-decoded float64.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

// Value returns the value sent to the server.
func (o *Option) Value() any {
	switch o.Spec.Kind {
	case KindInt, KindTime:
		return o.num
	case KindBool:
		return o.flag
	case KindList:
		return o.Spec.Choices[o.index]
	}
	return o.text
}

// Step moves the value one notch up (dir > 0) or down. Numbers stop at zero
// and lists wrap around.
func (o *Option) Step(dir int) {
	if dir == 0 {
		return
	}
	sign := 1
	if dir < 0 {
		sign = -1
	}
	switch o.Spec.Kind {
	case KindInt:
		o.num = max(0, o.num+sign)
	case KindTime:
		o.num = max(0, o.num+sign*timeStep)
	case KindBool:
		o.flag = !o.flag
	case KindList:
		n := len(o.Spec.Choices)
		o.index = (o.index + sign + n) % n
	}
}

// IsText reports whether the option takes typed input.
func (o *Option) IsText() bool {
	return o.Spec.Kind == KindText || o.Spec.Kind == KindStr
}

func (o *Option) typeRune(r rune) {
	if o.IsText() {
		o.text += string(r)
	}
}

func (o *Option) backspace() {
	if !o.IsText() || o.text == "" {
		return
	}
	runes := []rune(o.text)
	o.text = string(runes[:len(runes)-1])
}

// Display is the value line of the option's panel.
func (o *Option) Display() string {
	switch o.Spec.Kind {
	case KindInt:
		return fmt.Sprintf("Value: %d", o.num)
	case KindBool:
		if o.flag {
			return "Enabled: Yes"
		}
		return "Enabled: No"
	case KindList:
		return "Value: " + o.Spec.Choices[o.index]
	case KindTime:
		return "Time: " + Clock(o.num)
	}
	return "Value: " + o.text
}

// Clock formats seconds as H:MM:SS.
func Clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
