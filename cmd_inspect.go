package main

import (
	"context"
	"encoding/hex"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"rlpf/action"
	"rlpf/engine"
	"rlpf/policy"
	"rlpf/store"
	"rlpf/utils"
)

var inspectFlags struct {
	snapshot string
	id       int64
	top      int
}

// runInspect is the handler for "rlpf inspect".
func runInspect(cmd *cobra.Command, args []string) error {
	return inspect(cmd.Context(), inspectFlags.snapshot, inspectFlags.id, inspectFlags.top, cmd.OutOrStdout())
}

func inspect(ctx context.Context, path string, id int64, top int, w io.Writer) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if id == 0 {
		metas, err := st.List(ctx)
		if err != nil {
			return err
		}
		for _, m := range metas {
			if err := writeString(w, metaLine(m)); err != nil {
				return err
			}
		}
		return nil
	}

	snap, err := st.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := writeString(w, metaLine(snap.Meta)); err != nil {
		return err
	}
	for _, r := range strongest(snap.Rows, top) {
		if err := writeString(w, rowLine(&r)); err != nil {
			return err
		}
	}
	return nil
}

func metaLine(m store.Meta) string {
	return "snapshot=" + utils.Itoa(int(m.ID)) +
		" core=" + utils.Itoa(m.Core) +
		" created=" + m.Created.UTC().Format("2006-01-02T15:04:05Z") +
		" alpha=" + utils.Ftoa(m.Params.Alpha, 4) +
		" gamma=" + utils.Ftoa(m.Params.Gamma, 4) +
		" epsilon=" + utils.Ftoa(m.Params.Epsilon, 4) +
		" queue=" + utils.Itoa(m.Params.Queue) +
		" successor=" + m.Params.Successor +
		" states=" + utils.Itoa(m.Count) +
		" digest=" + hex.EncodeToString(m.Digest[:6]) + "\n"
}

// strongest returns up to n rows ordered by their greedy value, highest first.
// Ties keep snapshot (recency) order. n <= 0 returns every row.
func strongest(rows []engine.Row, n int) []engine.Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b engine.Row) int {
		va, vb := bestValue(&a), bestValue(&b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return 0
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func bestValue(r *engine.Row) float64 {
	return r.Values[policy.Greedy((*[action.Count]float64)(&r.Values))]
}

func rowLine(r *engine.Row) string {
	best := policy.Greedy((*[action.Count]float64)(&r.Values))
	line := r.State.String() + " best=" + utils.Itoa(int(action.Offsets[best])) + " ["
	for a, v := range r.Values {
		if a > 0 {
			line += " "
		}
		line += utils.Ftoa(v, 4)
	}
	return line + "]\n"
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
