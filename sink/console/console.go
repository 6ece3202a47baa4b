package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/sink"
)

type ConsoleOutput struct {
	w io.Writer
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) sink.Sink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) Name() string { return "console" }

func (c *ConsoleOutput) Publish(_ context.Context, st display.State) error {
	ts := st.UpdatedAt.UTC().Format(time.RFC3339)
	r, ok := st.Reading()
	if !ok {
		_, err := fmt.Fprintf(c.w, "%s no reading\n", ts)
		return err
	}
	env := r.Env()
	_, err := fmt.Fprintf(c.w, "%s T=%s RH=%s Td=%s ES=%s E=%s AH=%s W=%s H=%s\n",
		ts, env.Temperature, env.Humidity, st.DewPoint, st.SaturationVaporPressure,
		st.VaporPressure, st.AbsoluteHumidity, st.MixingRatio, st.Enthalpy)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }
