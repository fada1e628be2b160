// Package kafka publishes committed fact rows to a downstream topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crossing-times-etl/internal/config"
	"github.com/couchcryptid/crossing-times-etl/internal/domain"
)

// Writer produces status readings to the sink topic.
// It implements pipeline.FactPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishStatusReadings serializes and publishes fact rows in a single
// WriteMessages call. Messages are keyed by the fact conflict key minus the
// timestamp, so all minutes of one crossing direction land on one partition
// in order.
func (w *Writer) PublishStatusReadings(ctx context.Context, rows []domain.StatusReading) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// statusReadingMessage is the wire form of a fact row.
type statusReadingMessage struct {
	FacilityID          int       `json:"facility_id"`
	FacilityModifier    *string   `json:"facility_modifier,omitempty"`
	RouteID             int       `json:"route_id"`
	CardinalDirectionID int64     `json:"cardinal_direction_id"`
	TravelDirectionID   int64     `json:"travel_direction_id"`
	InformationalTextID int64     `json:"informational_text_id"`
	IsCrossingClosed    bool      `json:"is_crossing_closed"`
	RouteSpeed          float64   `json:"route_speed"`
	RouteTravelTime     float64   `json:"route_travel_time"`
	RouteSpeedHist      string    `json:"route_speed_hist,omitempty"`
	RouteTravelTimeHist string    `json:"route_travel_time_hist,omitempty"`
	SpeedStatusMessage  string    `json:"speed_status_message,omitempty"`
	TimeStatusMessage   string    `json:"time_status_message,omitempty"`
	IsDataAvailable     bool      `json:"is_data_available"`
	TimeStamp           time.Time `json:"time_stamp"`
}

func serializeToMessage(row domain.StatusReading) (kafkago.Message, error) {
	data, err := json.Marshal(statusReadingMessage(row))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%d-%d-%d", row.FacilityID, row.RouteID, row.CardinalDirectionID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "time_stamp", Value: []byte(row.TimeStamp.Format(time.RFC3339))},
		},
	}, nil
}
