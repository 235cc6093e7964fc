package tableau

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/logging"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

// Build runs every constraint over the generator in ranking order and
// prepares the final automaton. A tableau is built once; a second call
// returns ErrAlreadyBuilt.
func (t *Tableau) Build(ctx context.Context) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.built {
		return ErrAlreadyBuilt
	}
	if t.gen == nil {
		return fmt.Errorf("%w: tableau is closed", fst.ErrClosed)
	}

	ctx = t.context(ctx)
	ctx, span := t.tracer.Start(ctx, "tableau.Build", spanAttrs(t),
		trace.WithAttributes(attribute.Int("tableau.constraints", len(t.constraints))))
	defer span.End()
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			failSpan(span, err)
			result = "error"
		}
		buildsTotal.WithLabelValues(result).Inc()
		t.ins.buildDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("result", result)))
	}()

	runnable, err := t.gen.Copy(ctx)
	if err != nil {
		return fmt.Errorf("copy generator: %w", err)
	}
	if _, err := t.optimize(ctx, t.gen); err != nil {
		runnable.Close()
		return fmt.Errorf("optimize generator: %w", err)
	}
	t.logSize(ctx, "generator", runnable)

	stages := make([]Stage, 0, len(t.constraints))
	release := func() {
		for _, s := range stages {
			fst.CloseAll(s.Before, s.After)
		}
		runnable.Close()
	}

	total := len(t.constraints)
	for i, c := range t.constraints {
		t.logger.Info(t.stageContext(ctx, i+1, c), "applying constraint",
			zap.Int("index", i+1), zap.Int("total", total))
		st, err := t.applyStage(ctx, runnable, i+1, c)
		if err != nil {
			release()
			return err
		}
		stages = append(stages, st)
	}

	if err := fst.Apply(ctx, t.engine, runnable, t.FinishRecipe()); err != nil {
		release()
		return fmt.Errorf("final cleanup: %w", err)
	}
	if err := runnable.Minimize(ctx); err != nil {
		release()
		return err
	}
	t.logSize(ctx, "final", runnable)
	if _, err := t.optimize(ctx, runnable); err != nil {
		release()
		return fmt.Errorf("optimize final: %w", err)
	}

	t.stages = stages
	t.final = runnable
	t.built = true
	t.logger.Info(ctx, "build complete", zap.Duration("duration", time.Since(start)))
	return nil
}

// applyStage applies c to runnable in place and returns the snapshots.
func (t *Tableau) applyStage(ctx context.Context, runnable fst.Transducer, index int, c *constraint.Constraint) (st Stage, err error) {
	ctx = t.stageContext(ctx, index, c)
	ctx, span := t.tracer.Start(ctx, "tableau.Stage", spanAttrs(t), trace.WithAttributes(
		attribute.Int("stage.index", index),
		attribute.String("constraint.name", c.Name()),
		attribute.Int("constraint.precision", c.Precision()),
	))
	defer span.End()
	start := time.Now()

	st.Constraint = c
	defer func() {
		if err != nil {
			failSpan(span, err)
			fst.CloseAll(st.Before, st.After)
			st = Stage{}
		}
	}()

	if err = c.Mark(ctx, t.engine, runnable); err != nil {
		return st, err
	}
	if err = runnable.Minimize(ctx); err != nil {
		return st, err
	}
	if st.Before, err = t.snapshot(ctx, runnable); err != nil {
		return st, err
	}

	p := penalty.New(t.sym)
	if err = p.Penalize(ctx, t.engine, runnable, c.Precision(), t.method); err != nil {
		return st, fmt.Errorf("constraint %s: %w", c.Name(), err)
	}
	if err = runnable.Minimize(ctx); err != nil {
		return st, err
	}
	if st.After, err = t.snapshot(ctx, runnable); err != nil {
		return st, err
	}

	if err = p.Pardon(ctx, t.engine, runnable); err != nil {
		return st, fmt.Errorf("constraint %s: %w", c.Name(), err)
	}
	if err = runnable.Minimize(ctx); err != nil {
		return st, err
	}

	elapsed := time.Since(start)
	stageDuration.WithLabelValues(string(t.method)).Observe(elapsed.Seconds())
	t.ins.stageDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("method", string(t.method))))
	t.logSize(ctx, "stage applied", runnable, zap.Duration("duration", elapsed))
	return st, nil
}

func (t *Tableau) stageContext(ctx context.Context, index int, c *constraint.Constraint) context.Context {
	return logging.WithStage(ctx, logging.Stage{
		Index:      index,
		Constraint: c.Name(),
		Precision:  c.Precision(),
		Method:     string(t.method),
	})
}

func (t *Tableau) snapshot(ctx context.Context, tr fst.Transducer) (fst.Transducer, error) {
	c, err := tr.Copy(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := t.optimize(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// FinishRecipe removes input segments, deletion symbols, nucleus boundaries
// and the syllable boundaries adjacent to word boundaries.
func (t *Tableau) FinishRecipe() regex.Node {
	s := t.sym
	markers := regex.Replace(regex.Alt(
		s.OutPrefix(),
		regex.Seq(s.WordBound(), s.SylBound()),
		regex.Seq(s.SylBound(), s.WordBound()),
		s.NuclBound(),
	), regex.Obligatory, regex.Eps())
	return regex.Chain(markers, regex.Replace(s.No(), regex.Obligatory, regex.Eps()))
}
