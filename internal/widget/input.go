package widget

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ChuLiYu/widgetsync/internal/model"
	"github.com/ChuLiYu/widgetsync/internal/protocol"
	"github.com/ChuLiYu/widgetsync/pkg/types"
)

// InputField is a single-line text input. Typed text is written into its
// text model; the "valid" property follows the model's validity so the
// browser can highlight bad input.
type InputField struct {
	base
	textStyle

	ctrlMu  sync.Mutex
	text    *model.Binding[string]
	flag    *model.ValidFlag[string]
	valid   *model.Binding[bool]
	onInput func(string)
}

func NewInputField(theme *Theme, text string) *InputField {
	return NewBoundInputField(theme, model.NewString(text))
}

// NewBoundInputField creates an input field editing m.
func NewBoundInputField(theme *Theme, m model.Model[string]) *InputField {
	f := &InputField{base: newBase("input field")}
	f.text = model.NewBinding(m, model.NewListener(func(s string) {
		f.push(protocol.SetText(f.id, s))
	}))
	f.flag = model.NewValidFlag(m)
	f.valid = model.NewBinding[bool](f.flag, model.NewListener(func(v bool) {
		f.push(protocol.SetProperty(f.id, "", "valid", v))
	}))
	f.textStyle = newTextStyle(&f.base, theme)
	f.push(protocol.SetBgColor(f.id, types.White))
	f.handle(EventTextInput, f.handleTextInput)
	f.onDetach(func() {
		f.ctrlMu.Lock()
		defer f.ctrlMu.Unlock()
		f.text.Unbind()
		f.valid.Unbind()
		f.flag.Detach()
	})
	return f
}

type textInput struct {
	Text *string `json:"text"`
}

func (f *InputField) handleTextInput(data json.RawMessage) error {
	var in textInput
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if in.Text == nil {
		return fmt.Errorf("%w: missing text", ErrMalformedEvent)
	}
	f.TextModel().SetData(*in.Text)

	f.ctrlMu.Lock()
	fn := f.onInput
	f.ctrlMu.Unlock()
	if fn != nil {
		fn(*in.Text)
	}
	return nil
}

// OnTextInput registers fn to run after typed text has been written to the
// model.
func (f *InputField) OnTextInput(fn func(string)) {
	f.ctrlMu.Lock()
	f.onInput = fn
	f.ctrlMu.Unlock()
	f.push(protocol.Subscribe(f.id, EventTextInput))
}

func (f *InputField) TextModel() model.Model[string] {
	return f.text.Model()
}

// SetTextModel makes the field edit m instead.
func (f *InputField) SetTextModel(m model.Model[string]) {
	f.ctrlMu.Lock()
	defer f.ctrlMu.Unlock()
	f.flag.Detach()
	f.text.SetModel(m)
	f.flag = model.NewValidFlag(m)
	f.valid.SetModel(f.flag)
}

func (f *InputField) Text() string {
	return f.TextModel().Data()
}

func (f *InputField) SetText(s string) {
	f.TextModel().SetData(s)
}

// CheckBox is a two-state toggle.
type CheckBox struct {
	base

	ctrlMu  sync.Mutex
	checked *model.Binding[bool]
	onCheck func(bool)
}

func NewCheckBox(checked bool) *CheckBox {
	return NewBoundCheckBox(model.NewBoolean(checked))
}

func NewBoundCheckBox(m model.Model[bool]) *CheckBox {
	c := &CheckBox{base: newBase("checkbox")}
	c.checked = model.NewBinding(m, model.NewListener(func(v bool) {
		c.push(protocol.SetProperty(c.id, "", "checked", v))
	}))
	c.handle(EventCheck, c.handleCheck)
	c.onDetach(c.checked.Unbind)
	return c
}

type checkInput struct {
	State *bool `json:"state"`
}

func (c *CheckBox) handleCheck(data json.RawMessage) error {
	var in checkInput
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if in.State == nil {
		return fmt.Errorf("%w: missing state", ErrMalformedEvent)
	}
	c.CheckedModel().SetData(*in.State)

	c.ctrlMu.Lock()
	fn := c.onCheck
	c.ctrlMu.Unlock()
	if fn != nil {
		fn(*in.State)
	}
	return nil
}

// OnCheck registers fn to run after the browser toggled the box.
func (c *CheckBox) OnCheck(fn func(bool)) {
	c.ctrlMu.Lock()
	c.onCheck = fn
	c.ctrlMu.Unlock()
	c.push(protocol.Subscribe(c.id, EventCheck))
}

func (c *CheckBox) CheckedModel() model.Model[bool] {
	return c.checked.Model()
}

func (c *CheckBox) SetCheckedModel(m model.Model[bool]) {
	c.checked.SetModel(m)
}

func (c *CheckBox) Checked() bool { return c.CheckedModel().Data() }
func (c *CheckBox) Check()        { c.CheckedModel().SetData(true) }
func (c *CheckBox) Uncheck()      { c.CheckedModel().SetData(false) }
func (c *CheckBox) Toggle()       { c.CheckedModel().SetData(!c.Checked()) }
