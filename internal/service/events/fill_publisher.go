package events

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/backtest-service/internal/constant"
	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/krobus00/backtest-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// FillPublisher pushes executed fills onto a JetStream stream so
// downstream consumers (recorders, dashboards) can tail the paper-trade
// session.
type FillPublisher struct {
	js nats.JetStreamContext
}

func NewFillPublisher(js nats.JetStreamContext) *FillPublisher {
	return &FillPublisher{js: js}
}

func (p *FillPublisher) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.FillStreamName,
		Subjects:  []string{constant.FillStreamSubjectAll},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	}

	stream, err := p.js.StreamInfo(constant.FillStreamName)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.FillStreamName)
		_, err = p.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.FillStreamName)
	_, err = p.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (p *FillPublisher) Publish(fill entity.Fill) error {
	return util.PublishEvent(p.js, constant.FillStreamSubjectData, entity.FillEvent{Data: fill})
}
