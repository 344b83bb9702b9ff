// Package jsonfile stores station history and surge state as one file per
// record in a directory. JSON files keep the layout of the earlier service;
// msgpack is available as a compact alternative.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/types"
)

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Config holds the configuration for a file-based store
type Config struct {
	Directory string `yaml:"directory"`
	Codec     string `yaml:"codec,omitempty"`
}

// Storage is a directory of per-station record files
type Storage struct {
	dir   string
	codec string
}

// New sets up a file store, creating the directory if needed
func New(c Config) (*Storage, error) {
	if c.Directory == "" {
		return nil, fmt.Errorf("jsonfile: directory is required")
	}
	switch c.Codec {
	case "":
		c.Codec = CodecJSON
	case CodecJSON, CodecMsgpack:
	default:
		return nil, fmt.Errorf("jsonfile: unknown codec %q", c.Codec)
	}

	if err := os.MkdirAll(c.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create directory: %w", err)
	}

	log.Infof("using %s file storage in %s", c.Codec, c.Directory)
	return &Storage{dir: c.Directory, codec: c.Codec}, nil
}

func (s *Storage) historyPath(stationID string) string {
	return filepath.Join(s.dir, stationID+"_historico."+s.codec)
}

func (s *Storage) surgePath(stationID string) string {
	return filepath.Join(s.dir, stationID+"_sudestada."+s.codec)
}

// LoadHistory reads the history file of a station
func (s *Storage) LoadHistory(_ context.Context, stationID string) ([]types.Reading, error) {
	var hf historyFile
	if err := s.read(s.historyPath(stationID), &hf); err != nil {
		return nil, err
	}

	regs := hf.Registros
	if len(regs) == 0 {
		regs = hf.SF
	}

	readings := make([]types.Reading, 0, len(regs))
	for _, reg := range regs {
		readings = append(readings, reg.reading(stationID))
	}
	return readings, nil
}

// SaveHistory replaces the history file of a station
func (s *Storage) SaveHistory(_ context.Context, stationID string, readings []types.Reading) error {
	hf := historyFile{Registros: make([]registro, 0, len(readings))}
	for _, r := range readings {
		hf.Registros = append(hf.Registros, toRegistro(r))
	}
	return s.write(s.historyPath(stationID), hf)
}

// LoadSurgeState reads the surge file of a station
func (s *Storage) LoadSurgeState(_ context.Context, stationID string) (types.SurgeState, error) {
	var sf surgeFile
	if err := s.read(s.surgePath(stationID), &sf); err != nil {
		return types.SurgeState{}, err
	}
	return sf.state(), nil
}

// SaveSurgeState replaces the surge file of a station
func (s *Storage) SaveSurgeState(_ context.Context, stationID string, state types.SurgeState) error {
	return s.write(s.surgePath(stationID), toSurgeFile(state))
}

// Ping checks that the directory is still there and writable
func (s *Storage) Ping(context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Storage) Close() error { return nil }

func (s *Storage) read(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return storage.ErrNotFound
	}

	if s.codec == CodecMsgpack {
		err = msgpack.Unmarshal(data, v)
	} else {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// write replaces path atomically through a temp file in the same directory
func (s *Storage) write(path string, v interface{}) error {
	var data []byte
	var err error
	if s.codec == CodecMsgpack {
		data, err = msgpack.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
