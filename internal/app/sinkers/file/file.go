package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/sirupsen/logrus"
)

type FileSinker struct {
	Log       *logrus.Logger
	fReport   *os.File
	fAllTrack *os.File
}

func New(log *logrus.Logger) app.Sinker {
	//init the logger here
	return &FileSinker{Log: log}
}

func (s *FileSinker) Init(ctx context.Context, params interface{}) error {
	conf, ok := params.(Configuration)
	if !ok {
		conf = Configuration{Outputraw: "rawData.log", Outputreport: "report.log"}
	}

	if _, err := os.Stat("log"); os.IsNotExist(err) {
		err := os.Mkdir("log", os.ModePerm)
		if err != nil {
			s.Log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Unable to create folder 'log'")
			return err
		}
	}

	fReport, err := os.OpenFile(filepath.Join("log", conf.Outputreport),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.Log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": err,
		}).Error("Unable to Open file")
		return err
	}
	s.fReport = fReport

	fAllTrack, err := os.OpenFile(filepath.Join("log", conf.Outputraw),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.Log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": err,
		}).Error("Unable to Open file")
		return err
	}
	s.fAllTrack = fAllTrack

	return nil
}

func (s *FileSinker) Sink(ctx context.Context, t time.Time, data []app.Track) error {
	if len(data) == 0 {
		s.Log.WithContext(ctx).Info("No track data")
		return nil
	}

	var degraded []app.Track
	for _, track := range data {
		if track.Status == app.StatusLostComm || track.Status == app.StatusDelayed {
			degraded = append(degraded, track)
		}
	}

	if err := s.writeBatch(s.fAllTrack, t, data); err != nil {
		return err
	}
	if len(degraded) > 0 {
		if err := s.writeBatch(s.fReport, t, degraded); err != nil {
			return err
		}
	}

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"number of Tracks":   len(data),
		"number of Degraded": len(degraded),
	}).Info("Track snapshot sunk to file")

	return nil
}

func (s *FileSinker) writeBatch(f *os.File, t time.Time, data []app.Track) error {
	marshal, err := json.Marshal(data)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(t.String() + "\n" + string(marshal) + "\n"); err != nil {
		return err
	}
	return w.Flush()
}
