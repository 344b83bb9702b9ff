package jsonfile

import (
	"math"
	"time"

	"github.com/chrissnell/tidewatch/internal/types"
)

// historyFile is the on-disk layout of a station history. The field names
// match the files written by the earlier Python service so existing data
// can be loaded without conversion.
type historyFile struct {
	Registros []registro `json:"registros" msgpack:"registros"`
	// SF is the key the earlier service used for the San Fernando file
	SF []registro `json:"sf,omitempty" msgpack:"sf,omitempty"`
}

type registro struct {
	Altura        float64 `json:"altura" msgpack:"altura"`
	Hora          string  `json:"hora" msgpack:"hora"`
	Timestamp     string  `json:"timestamp" msgpack:"timestamp"`
	TimestampUnix float64 `json:"timestamp_unix,omitempty" msgpack:"timestamp_unix,omitempty"`
}

// surgeFile is the on-disk surge record
type surgeFile struct {
	Activa        bool     `json:"activa" msgpack:"activa"`
	PicoMaximo    float64  `json:"pico_maximo" msgpack:"pico_maximo"`
	HoraPico      *string  `json:"hora_pico" msgpack:"hora_pico"`
	TimestampPico *float64 `json:"timestamp_pico" msgpack:"timestamp_pico"`
	Inicio        *string  `json:"inicio" msgpack:"inicio"`
	IDEvento      string   `json:"id_evento,omitempty" msgpack:"id_evento,omitempty"`
}

func toRegistro(r types.Reading) registro {
	return registro{
		Altura:        r.Height,
		Hora:          r.ObservedAt,
		Timestamp:     r.RecordedAt.Format(time.RFC3339Nano),
		TimestampUnix: float64(r.RecordedAt.UnixNano()) / 1e9,
	}
}

func (reg registro) reading(stationID string) types.Reading {
	return types.Reading{
		StationID:  stationID,
		Height:     reg.Altura,
		ObservedAt: reg.Hora,
		RecordedAt: reg.recordedAt(),
	}
}

// recordedAt prefers the unix timestamp and falls back to the ISO string.
// The earlier service wrote local times without an offset.
func (reg registro) recordedAt() time.Time {
	if reg.TimestampUnix > 0 {
		return unixFloat(reg.TimestampUnix)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, reg.Timestamp, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toSurgeFile(s types.SurgeState) surgeFile {
	f := surgeFile{
		Activa:     s.Active,
		PicoMaximo: s.PeakHeight,
		IDEvento:   s.EventID,
	}
	if s.HasPeak() {
		label := s.PeakObservedAt
		f.HoraPico = &label
		ts := float64(s.PeakRecordedAt.UnixNano()) / 1e9
		f.TimestampPico = &ts
	}
	if s.StartedAt != nil {
		started := s.StartedAt.Format(time.RFC3339Nano)
		f.Inicio = &started
	}
	return f
}

func (f surgeFile) state() types.SurgeState {
	s := types.SurgeState{
		Active:     f.Activa,
		EventID:    f.IDEvento,
		PeakHeight: f.PicoMaximo,
	}
	if f.HoraPico != nil {
		s.PeakObservedAt = *f.HoraPico
	}
	if f.TimestampPico != nil {
		s.PeakRecordedAt = unixFloat(*f.TimestampPico)
	}
	// The earlier service never cleared inicio, so only trust it while active
	if f.Inicio != nil && f.Activa {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
			if t, err := time.ParseInLocation(layout, *f.Inicio, time.Local); err == nil {
				s.StartedAt = &t
				break
			}
		}
	}
	return s
}

func unixFloat(v float64) time.Time {
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3)
}
