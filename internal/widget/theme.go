package widget

import (
	"sync/atomic"

	"github.com/ChuLiYu/widgetsync/internal/model"
	"github.com/ChuLiYu/widgetsync/pkg/types"
)

// Default text style.
const DefaultFontSize = "12pt"

// Theme is the text style shared by every client of an Application. It is
// deliberately not isolated per session: a change is seen by every text
// widget that has not overridden the property. Fields are synchronized
// because sessions run on different goroutines.
type Theme struct {
	Color    *model.Synchronized[types.Color]
	FontSize *model.Synchronized[string]

	version atomic.Uint64
}

func NewTheme() *Theme {
	t := &Theme{
		Color:    model.NewSynchronized[types.Color](model.NewValue(types.Black, types.Black)),
		FontSize: model.NewSynchronized[string](model.NewValue(DefaultFontSize, DefaultFontSize)),
	}
	t.Color.AddListener(model.NewListener(func(types.Color) { t.version.Add(1) }))
	t.FontSize.AddListener(model.NewListener(func(string) { t.version.Add(1) }))
	return t
}

// Version counts the changes made to the theme since it was created.
func (t *Theme) Version() uint64 {
	return t.version.Load()
}
