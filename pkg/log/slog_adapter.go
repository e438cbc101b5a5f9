package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
		slog.String("role", event.LocalRole.String()),
	}
	if event.BuildID != "" {
		attrs = append(attrs, slog.String("build", event.BuildID))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		attrs = append(attrs, slog.String("msg_type", event.Message.Type.String()))
		if event.Message.MessageID != 0 {
			attrs = append(attrs, slog.Uint64("msg_id", uint64(event.Message.MessageID)))
		}
		if event.Message.ModelCategory != "" {
			attrs = append(attrs, slog.String("model", event.Message.ModelCategory))
		}
		if event.Message.Status != nil {
			attrs = append(attrs, slog.String("status", event.Message.Status.String()))
		}
		if event.Message.EngineVersion != "" {
			attrs = append(attrs, slog.String("engine_version", event.Message.EngineVersion))
		}
		if event.Message.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Message.ProcessingTime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
