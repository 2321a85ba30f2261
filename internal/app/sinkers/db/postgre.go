package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/sirupsen/logrus"
)

const (
	schemaname = "flighttracking"
	tablename  = "track"
)

type PostGreSinker struct {
	Log *logrus.Logger
	db  *sql.DB
}

func New(log *logrus.Logger) app.Sinker {
	//init the logger here
	return &PostGreSinker{Log: log}
}

func (s *PostGreSinker) Init(ctx context.Context, params interface{}) error {
	parameters, ok := params.(Configuration)
	if !ok {
		return fmt.Errorf("db sinker needs a db.Configuration, got %T", params)
	}

	// Init the connection to the database
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable",
		parameters.Host, parameters.Port, parameters.User, parameters.Password, parameters.Dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return err
	}

	err = db.Ping()
	if err != nil {
		return err
	}

	s.Log.WithContext(ctx).Info("Successfully connected : " + parameters.Host)

	s.db = db

	createSchemaSQL := "CREATE SCHEMA IF NOT EXISTS " + schemaname
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"SQL": createSchemaSQL,
	}).Info("create schema")
	if _, err = s.db.Exec(createSchemaSQL); err != nil {
		return err
	}

	createTableSQL := "CREATE TABLE IF NOT EXISTS " + schemaname + "." + tablename +
		" (TrackID varchar(40) NOT NULL, Label varchar(40), Lat decimal, Lng decimal," +
		" Altitude decimal, GroundSpeed decimal, Heading decimal, Status varchar(40)," +
		" OriginCode varchar(8), DestinationCode varchar(8), SunkAt timestamp)"
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"SQL": createTableSQL,
	}).Info("create table")

	if _, err = s.db.Exec(createTableSQL); err != nil {
		return err
	}

	return nil
}

func (s *PostGreSinker) Sink(ctx context.Context, t time.Time, data []app.Track) error {
	if len(data) == 0 {
		s.Log.WithContext(ctx).Info("No track data")
		return nil
	}

	insertSQL := "INSERT INTO " + schemaname + "." + tablename +
		" (TrackID, Label, Lat, Lng, Altitude, GroundSpeed, Heading, Status, OriginCode, DestinationCode, SunkAt)" +
		" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, track := range data {
		if _, err := txn.ExecContext(ctx, insertSQL,
			track.ID,
			track.Label,
			track.Position.Lat,
			track.Position.Lng,
			track.Altitude,
			track.GroundSpeed,
			track.Heading,
			string(track.Status),
			track.Origin.Code,
			track.Destination.Code,
			t.UTC(),
		); err != nil {
			if errRb := txn.Rollback(); errRb != nil {
				s.Log.WithContext(ctx).WithFields(logrus.Fields{
					"Error": errRb,
				}).Error("Unable to rollback")
			}
			return err
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"number of Tracks": len(data),
	}).Info("Track snapshot sunk to DB")

	return nil
}

// DB exposes the live connection for the search service.
func (s *PostGreSinker) DB() *sql.DB {
	return s.db
}
