package demo

import "github.com/shuldan/dispatch/pkg/dispatcher"

const (
	KindButtonFirst dispatcher.Kind = "button.first"

	// ButtonMessage is the payload every button click carries.
	ButtonMessage = "BFMV"
)

// ButtonFirstEvent is posted once per click of the first button.
type ButtonFirstEvent struct {
	Message string `json:"message"`
}

func (ButtonFirstEvent) Kind() dispatcher.Kind { return KindButtonFirst }
