package widget

import (
	"github.com/ChuLiYu/widgetsync/internal/model"
	"github.com/ChuLiYu/widgetsync/internal/protocol"
	"github.com/ChuLiYu/widgetsync/pkg/types"
)

// textStyle binds the color and font size of a text-bearing widget. Both
// inherit from the theme until set on the widget itself.
type textStyle struct {
	color    *model.Cascading[types.Color]
	fontSize *model.Cascading[string]
}

func newTextStyle(b *base, theme *Theme) textStyle {
	if theme == nil {
		theme = NewTheme()
	}
	st := textStyle{
		color:    model.NewCascading[types.Color](theme.Color, nil),
		fontSize: model.NewCascading[string](theme.FontSize, nil),
	}
	color := model.NewBinding[types.Color](st.color, model.NewListener(func(c types.Color) {
		b.push(protocol.SetColor(b.id, c))
	}))
	size := model.NewBinding[string](st.fontSize, model.NewListener(func(s string) {
		b.push(protocol.SetFontSize(b.id, s))
	}))
	b.onDetach(func() {
		color.Unbind()
		size.Unbind()
		st.color.Detach()
		st.fontSize.Detach()
	})
	return st
}

// ColorModel returns the text color; writing it overrides the theme for
// this widget only.
func (st textStyle) ColorModel() model.Model[types.Color] { return st.color }

func (st textStyle) SetColor(c types.Color) { st.color.SetData(c) }

func (st textStyle) FontSizeModel() model.Model[string] { return st.fontSize }

func (st textStyle) SetFontSize(size string) { st.fontSize.SetData(size) }

// Label displays the value of a string model.
type Label struct {
	base
	textStyle
	text *model.Binding[string]
}

// NewLabel creates a label showing text. Theme may be nil.
func NewLabel(theme *Theme, text string) *Label {
	return NewBoundLabel(theme, model.NewString(text))
}

// NewBoundLabel creates a label that follows m.
func NewBoundLabel(theme *Theme, m model.Model[string]) *Label {
	l := &Label{base: newBase("text")}
	l.text = model.NewBinding(m, model.NewListener(func(s string) {
		l.push(protocol.SetText(l.id, s))
	}))
	l.textStyle = newTextStyle(&l.base, theme)
	l.onDetach(l.text.Unbind)
	return l
}

func (l *Label) TextModel() model.Model[string] {
	return l.text.Model()
}

// SetTextModel makes the label follow m instead.
func (l *Label) SetTextModel(m model.Model[string]) {
	l.text.SetModel(m)
}

func (l *Label) Text() string {
	return l.text.Model().Data()
}

func (l *Label) SetText(s string) {
	l.text.Model().SetData(s)
}

// Button is a clickable decorator around a single inline widget, a Label
// by default.
type Button struct {
	base
	label *Label
}

func NewButton(theme *Theme, text string) *Button {
	b := &Button{base: newBase("button")}
	b.label = NewLabel(theme, text)
	b.setChild(b.label)
	return b
}

// Label returns the caption label.
func (b *Button) Label() *Label {
	return b.label
}

// Put replaces the caption widget.
func (b *Button) Put(w Widget) {
	if prev := b.setChild(w); prev != nil && prev.ID() != w.ID() {
		Walk(prev, func(x Widget) { x.Detach() })
	}
	if l, ok := w.(*Label); ok {
		b.label = l
	} else {
		b.label = nil
	}
}
