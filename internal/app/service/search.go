package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bkoushik11/flight-tracking-backend/internal/app"
	"github.com/bkoushik11/flight-tracking-backend/internal/app/sinkers/db"
	"github.com/sirupsen/logrus"
)

type Service struct {
	Log *logrus.Logger
	db  *sql.DB
}

const (
	schemaname = "flighttracking"
	tablename  = "track"
)

func New(log *logrus.Logger) app.Service {
	//init the logger here
	return &Service{Log: log}
}

// Search returns sunk track snapshots inside the bounding box, under
// the altitude threshold and within the time window.
func (s *Service) Search(ctx context.Context, params interface{}, bbox app.Bbox, maxAltitudeFeet float64, from, to time.Time) ([]app.SunkTrack, error) {
	s.Log.WithContext(ctx).Info("Search service called")

	//check if service have a db connection
	if s.db == nil {
		s.Log.WithContext(ctx).Info("Search service - init DB")
		if err := s.init(ctx, params); err != nil {
			return nil, err
		}
	}

	selectSQLstmt := "SELECT TrackID, Label, Lat, Lng, Altitude, GroundSpeed, Heading, Status, OriginCode, DestinationCode, SunkAt FROM " +
		schemaname + "." + tablename +
		" WHERE Lat BETWEEN $1 AND $2 AND Lng BETWEEN $3 AND $4 AND Altitude <= $5 AND SunkAt BETWEEN $6 AND $7"

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"SQL": selectSQLstmt,
	}).Debug("Select statement")

	rows, errQuery := s.db.QueryContext(ctx, selectSQLstmt,
		bbox.LatSW,
		bbox.LatNE,
		bbox.LngSW,
		bbox.LngNE,
		maxAltitudeFeet,
		from,
		to,
	)
	if errQuery != nil {
		return nil, errQuery
	}
	defer rows.Close()

	result := make([]app.SunkTrack, 0)
	for rows.Next() {
		var rec app.SunkTrack
		var status string
		if errScan := rows.Scan(
			&rec.TrackID,
			&rec.Label,
			&rec.Position.Lat,
			&rec.Position.Lng,
			&rec.Altitude,
			&rec.GroundSpeed,
			&rec.Heading,
			&status,
			&rec.OriginCode,
			&rec.DestinationCode,
			&rec.SunkAt,
		); errScan != nil {
			return nil, errScan
		}
		rec.Status = app.TrackStatus(status)
		result = append(result, rec)
	}

	if errRow := rows.Err(); errRow != nil {
		return nil, errRow
	}

	return result, nil
}

func (s *Service) init(ctx context.Context, params interface{}) error {
	parameters, ok := params.(db.Configuration)
	if !ok {
		return fmt.Errorf("search service needs a db.Configuration, got %T", params)
	}

	// Init the connection to the database
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable",
		parameters.Host, parameters.Port, parameters.User, parameters.Password, parameters.Dbname)

	dbConn, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return err
	}

	if err = dbConn.Ping(); err != nil {
		return err
	}

	s.Log.WithContext(ctx).Info("Successfully connected : " + parameters.Host)

	s.db = dbConn

	return nil
}
