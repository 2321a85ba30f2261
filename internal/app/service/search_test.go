package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSearchRejectsWrongParams(t *testing.T) {
	log := logrus.New()
	log.Out = io.Discard

	searchSvc := New(log)
	bbox := app.Bbox{LatSW: 8.0, LngSW: 68.0, LatNE: 35.0, LngNE: 97.0}

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	// lazy DB init needs a db.Configuration: anything else fails fast
	_, err := searchSvc.Search(context.Background(), "not-a-config", bbox, 40000, from, to)
	assert.Error(t, err)
}
