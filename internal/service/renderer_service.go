package service

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"welding-recommender-be/internal/dto"
	"welding-recommender-be/internal/entity"
	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IRendererService interface {
	Consume(ctx context.Context) error
}

// rendererService turns raw transition events into user-language
// messages and persists them as transcript records. It runs off the
// in-process pub/sub so a slow database never blocks a turn.
type rendererService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	records   contract.TransitionRecordRepository
	templates map[string]*template.Template
	logger    logger.ILogger
}

const skipTemplateEN = `We moved past {{.Skipped}}: {{.Reason}}. Now looking at {{.Next}}.`
const skipTemplateDE = `{{.Skipped}} wurde übersprungen: {{.Reason}}. Weiter mit {{.Next}}.`
const moveTemplateEN = `Moving on to {{.Next}}.`
const moveTemplateDE = `Weiter mit {{.Next}}.`

func NewRendererService(
	pubSub *gochannel.GoChannel,
	topicName string,
	records contract.TransitionRecordRepository,
	log logger.ILogger,
) IRendererService {
	templates := map[string]*template.Template{
		"skip:en": template.Must(template.New("skip:en").Parse(skipTemplateEN)),
		"skip:de": template.Must(template.New("skip:de").Parse(skipTemplateDE)),
		"move:en": template.Must(template.New("move:en").Parse(moveTemplateEN)),
		"move:de": template.Must(template.New("move:de").Parse(moveTemplateDE)),
	}
	return &rendererService{
		pubSub:    pubSub,
		topicName: topicName,
		records:   records,
		templates: templates,
		logger:    log,
	}
}

func (rs *rendererService) Consume(ctx context.Context) error {
	messages, err := rs.pubSub.Subscribe(ctx, rs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (rs *rendererService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TransitionMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rs.logger.Error("RENDERER", "Failed to unmarshal transition", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	rendered := rs.render(payload)

	if rs.records != nil {
		err := rs.records.Create(ctx, &entity.TransitionRecord{
			Id:               uuid.New(),
			SessionId:        payload.Event.SessionID,
			PreviousCategory: string(payload.Event.PreviousCategory),
			NewCategory:      string(payload.Event.NewCategory),
			Skipped:          payload.Event.Skipped,
			SkipReason:       payload.Event.SkipReason,
			RenderedMessage:  rendered,
			Language:         payload.Language,
			CreatedAt:        time.Now(),
		})
		if err != nil {
			rs.logger.Error("RENDERER", "Failed to persist transition record", map[string]interface{}{
				"session_id": payload.Event.SessionID,
				"error":      err.Error(),
			})
			msg.Nack()
			return
		}
	}

	msg.Ack()
}

func (rs *rendererService) render(payload dto.TransitionMessage) string {
	kind := "move"
	if payload.Event.Skipped {
		kind = "skip"
	}
	tpl, ok := rs.templates[kind+":"+payload.Language]
	if !ok {
		tpl = rs.templates[kind+":en"]
	}

	var sb strings.Builder
	err := tpl.Execute(&sb, map[string]string{
		"Skipped": payload.Event.PreviousCategory.Display(),
		"Next":    payload.Event.NewCategory.Display(),
		"Reason":  payload.Event.SkipReason,
	})
	if err != nil {
		rs.logger.Warn("RENDERER", "Template render failed", map[string]interface{}{
			"error": err.Error(),
		})
		return payload.Event.SkipReason
	}
	return sb.String()
}
