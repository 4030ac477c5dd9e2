// Package dialog implements the multi-step dialog engine: a generic step
// sequencer that turns a series of free-text answers into a committed
// domain record. Flows declare their steps; the engine owns session
// bookkeeping, cancellation, validation re-prompts, and commit.
package dialog

import (
	"strings"

	"log/slog"

	"orderbot/core/logger"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/keyboard"
	"orderbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Step is one question of a flow. Input that passes Validate is stored
// under Field, unless Apply overrides how the collected fields change.
type Step struct {
	Name   string
	Field  string
	Prompt string
	// Retry is sent when Validate rejects the input; the step is repeated.
	Retry string
	// Validate defaults to NonEmpty when nil.
	Validate func(input string) error
	// Apply computes field updates from the input. When nil the input is
	// stored under Field as-is.
	Apply func(current map[string]string, input string) map[string]string
}

// Flow is a complete dialog: an ordered step list ending in a commit.
type Flow struct {
	Kind string
	// CancelText aborts the dialog when received verbatim at any step.
	CancelText string
	Steps      []Step
	// Commit receives the collected fields once the final step passes.
	// The session is already cleared when Commit runs.
	Commit func(c tele.Context, fields map[string]string) error
	// OnCancel sends the cancellation notice and returns the chat to idle.
	OnCancel func(c tele.Context) error
	// OnCommitError reports a failed commit to the user. The dialog is not
	// retried; the session is already cleared.
	OnCommitError func(c tele.Context, err error) error
}

func (f *Flow) stepIndex(name string) int {
	for i := range f.Steps {
		if f.Steps[i].Name == name {
			return i
		}
	}
	return -1
}

// Engine drives registered flows over a session store. It satisfies the
// router's Dialogs contract.
type Engine struct {
	sessions state.Store
	flows    map[string]*Flow
}

// NewEngine constructs an Engine over the given session store.
func NewEngine(sessions state.Store) *Engine {
	return &Engine{
		sessions: sessions,
		flows:    make(map[string]*Flow),
	}
}

// RegisterFlow makes a flow startable. Later registrations with the same
// kind overwrite earlier ones.
func (e *Engine) RegisterFlow(f *Flow) {
	if f == nil || f.Kind == "" {
		return
	}
	e.flows[f.Kind] = f
}

// InProgress reports whether the chat has an active dialog.
func (e *Engine) InProgress(chatID int64) bool {
	return e.sessions.Active(chatID)
}

// Cancel aborts any active dialog for the chat without a notice.
func (e *Engine) Cancel(chatID int64) {
	e.sessions.Clear(chatID)
}

// Start opens a flow at the given step, replacing any prior session for
// the chat, and sends the step's prompt with a cancel keyboard.
func (e *Engine) Start(c tele.Context, kind, stepName string, seed map[string]string) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	flow, ok := e.flows[kind]
	if !ok {
		logger.Warn(tghelpers.BuildContext(c), "tg", "dialog.unknown_flow",
			slog.String("flow", kind),
		)
		return nil
	}
	idx := flow.stepIndex(stepName)
	if idx < 0 {
		logger.Warn(tghelpers.BuildContext(c), "tg", "dialog.unknown_step",
			slog.String("flow", kind),
			slog.String("step", stepName),
		)
		return nil
	}

	e.sessions.Start(chat.ID, kind, stepName, seed)
	logger.Debug(tghelpers.BuildContext(c), "tg", "dialog.start",
		slog.String("flow", kind),
		slog.String("step", stepName),
	)

	markup := keyboard.ReplyButtons([]string{flow.CancelText})
	return tghelpers.SendText(c, flow.Steps[idx].Prompt, &tele.SendOptions{ReplyMarkup: markup})
}

// Resume feeds the incoming message to the chat's active dialog: cancel
// token first, then the current step's validator, then either an advance
// to the next step or the flow's commit.
func (e *Engine) Resume(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	sess, ok := e.sessions.Get(chat.ID)
	if !ok {
		return nil
	}
	flow, ok := e.flows[sess.Flow]
	if !ok {
		e.sessions.Clear(chat.ID)
		return nil
	}

	ctx := tghelpers.BuildContext(c)
	input := strings.TrimSpace(c.Text())

	if input == flow.CancelText {
		e.sessions.Clear(chat.ID)
		logger.Debug(ctx, "tg", "dialog.cancelled",
			slog.String("flow", sess.Flow),
			slog.String("step", sess.Step),
		)
		if flow.OnCancel != nil {
			return flow.OnCancel(c)
		}
		return nil
	}

	idx := flow.stepIndex(sess.Step)
	if idx < 0 {
		// Session points at a step the flow no longer has; treat as cancel.
		e.sessions.Clear(chat.ID)
		if flow.OnCancel != nil {
			return flow.OnCancel(c)
		}
		return nil
	}
	step := flow.Steps[idx]

	validate := step.Validate
	if validate == nil {
		validate = NonEmpty
	}
	if err := validate(input); err != nil {
		logger.Debug(ctx, "tg", "dialog.reprompt",
			slog.String("flow", sess.Flow),
			slog.String("step", step.Name),
			slog.String("err", err.Error()),
		)
		retry := step.Retry
		if retry == "" {
			retry = defaultRetryText
		}
		return tghelpers.SendText(c, retry)
	}

	var updates map[string]string
	if step.Apply != nil {
		updates = step.Apply(sess.Fields, input)
	} else {
		updates = map[string]string{step.Field: input}
	}

	if idx == len(flow.Steps)-1 {
		fields := sess.Fields
		for k, v := range updates {
			fields[k] = v
		}
		// Whatever commit does, this dialog is over.
		e.sessions.Clear(chat.ID)
		if err := flow.Commit(c, fields); err != nil {
			logger.Error(ctx, "tg", "dialog.commit_failed",
				slog.String("flow", sess.Flow),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			if flow.OnCommitError != nil {
				if sendErr := flow.OnCommitError(c, err); sendErr != nil {
					return sendErr
				}
			}
			return err
		}
		return nil
	}

	next := flow.Steps[idx+1]
	e.sessions.Advance(chat.ID, next.Name, updates)
	logger.Debug(ctx, "tg", "dialog.advance",
		slog.String("flow", sess.Flow),
		slog.String("from", step.Name),
		slog.String("to", next.Name),
	)
	return tghelpers.SendText(c, next.Prompt)
}

const defaultRetryText = "❌ Некорректный ввод. Попробуйте еще раз:"
