package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/sirupsen/logrus"
)

type StdOutSinker struct {
	Log *logrus.Logger
}

func New(log *logrus.Logger) app.Sinker {
	//init the logger here
	return &StdOutSinker{Log: log}
}

func (s *StdOutSinker) Init(ctx context.Context, params interface{}) error {
	//Nothing to do here
	return nil
}

func (s *StdOutSinker) Sink(ctx context.Context, t time.Time, data []app.Track) error {
	if len(data) == 0 {
		s.Log.WithContext(ctx).Info("No track data")
		return nil
	}

	var buffer bytes.Buffer
	var degraded []app.Track

	//tracks currently in a degraded state
	for _, track := range data {
		if track.Status == app.StatusLostComm || track.Status == app.StatusDelayed {
			degraded = append(degraded, track)
		}
	}

	marshal, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"number of Tracks": len(data),
	}).Info("========All Tracks seen=============")

	buffer.Write(marshal)
	s.Log.WithContext(ctx).Debug(" Raw Datas" + buffer.String())

	marshalDegraded, err := json.Marshal(degraded)
	if err != nil {
		return err
	}
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"number of Tracks": len(degraded),
	}).Debug("========Degraded Tracks seen=============")

	var bufferDegraded bytes.Buffer
	bufferDegraded.Write(marshalDegraded)
	s.Log.WithContext(ctx).Debug(" Degraded Tracks" + bufferDegraded.String())

	return nil
}
