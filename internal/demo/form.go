package demo

import (
	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/internal/model"
	"github.com/ChuLiYu/widgetsync/internal/widget"
	"github.com/ChuLiYu/widgetsync/pkg/types"
)

// Status texts of the form page.
const (
	StatusIncomplete = "Please fill in the form"
	StatusReady      = "Ready to submit"
)

// Form is a sign-up page. The submit button only accepts when every field
// is valid and the terms are accepted.
var Form = application.PageFunc(func(root *widget.Root, ctx application.PageContext) {
	name := model.NewNotEmpty(ctx.Parameters["name"])
	email := model.NewEmail("")
	age := model.NewValidated(0, model.NotNegative)
	ageText := model.NewIntegerString(age)
	agree := model.NewBoolean(false)

	flags := []*model.ValidFlag[string]{
		model.NewValidFlag[string](name),
		model.NewValidFlag[string](email),
		model.NewValidFlag[string](ageText),
	}
	ready := model.NewConjunction(flags[0], flags[1], flags[2], agree)

	status := model.NewReadOnly(statusText(ready.Data()))
	onReady := model.NewListener(func(ok bool) { status.Publish(statusText(ok)) })
	ready.AddListener(onReady)

	result := widget.NewLabel(ctx.Theme, "")
	submit := widget.NewButton(ctx.Theme, "Submit")
	submit.OnClick(func(types.PointerEvent) {
		if !ready.Data() {
			result.SetText("Some fields are not valid")
			return
		}
		result.SetText("Welcome, " + name.Data() + " <" + email.Data() + ">")
	})

	root.Add(widget.NewSection(widget.NewLabel(ctx.Theme, "Name"), widget.NewBoundInputField(ctx.Theme, name)))
	root.Add(widget.NewSection(widget.NewLabel(ctx.Theme, "Email"), widget.NewBoundInputField(ctx.Theme, email)))
	root.Add(widget.NewSection(widget.NewLabel(ctx.Theme, "Age"), widget.NewBoundInputField(ctx.Theme, ageText)))
	root.Add(widget.NewSection(widget.NewBoundCheckBox(agree), widget.NewLabel(ctx.Theme, "I accept the terms")))
	root.Add(widget.NewBoundLabel(ctx.Theme, status))
	root.Add(submit)
	root.Add(result)

	root.OnClose(func() {
		ready.RemoveListener(onReady)
		ready.Detach()
		for _, f := range flags {
			f.Detach()
		}
		ageText.Detach()
	})
})

func statusText(ready bool) string {
	if ready {
		return StatusReady
	}
	return StatusIncomplete
}
