package statsd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// gaugeRecord is the on-disk shape of one saved gauge: a two-element tuple
// of (value, metadata-or-null).
type gaugeRecord struct {
	Value    float64
	Metadata Metadata
}

func (r gaugeRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{r.Value, r.Metadata})
}

func (r *gaugeRecord) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &r.Value); err != nil {
		return err
	}
	var meta Metadata
	if err := json.Unmarshal(tuple[1], &meta); err != nil {
		return err
	}
	r.Metadata = meta
	return nil
}

var gzipMagic = []byte{0x1f, 0x8b}

// GaugePersister loads and saves the gauges + keys_seen state across
// restarts. IO errors are logged and treated as a no-op, never propagated —
// gauge persistence is best-effort.
type GaugePersister struct {
	path    string
	gzipped bool
	log     logrus.FieldLogger
}

// NewGaugePersister builds a persister targeting <directory>/<filename>.
// gzipped selects the gzip-compressed save-file variant.
func NewGaugePersister(directory, filename string, gzipped bool, log logrus.FieldLogger) *GaugePersister {
	return &GaugePersister{
		path:    filepath.Join(directory, filename),
		gzipped: gzipped,
		log:     log,
	}
}

// Load populates agg's gauges and keys_seen from the save file, if it
// exists. Called once at startup before the Server begins accepting
// datagrams.
func (g *GaugePersister) Load(agg *Aggregator) {
	raw, err := os.ReadFile(g.path)
	if err != nil {
		if !os.IsNotExist(err) {
			g.log.WithError(err).WithField("path", g.path).Error("statsd: loading saved gauges")
		}
		return
	}

	raw, err = maybeGunzip(raw)
	if err != nil {
		g.log.WithError(err).WithField("path", g.path).Error("statsd: decompressing saved gauges")
		return
	}

	var records map[string]gaugeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		g.log.WithError(err).WithField("path", g.path).Error("statsd: parsing saved gauges")
		return
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()
	for k, r := range records {
		agg.gauges[k] = r.Value
		agg.keysSeen[k] = r.Metadata
	}
	g.log.WithField("count", len(records)).Info("statsd: loaded saved gauges")
}

// Save writes agg's current gauges + coalesced metadata to the save file.
// Called from the Orchestrator's shutdown path.
func (g *GaugePersister) Save(agg *Aggregator) {
	agg.mu.Lock()
	records := make(map[string]gaugeRecord, len(agg.gauges))
	for k, v := range agg.gauges {
		records[k] = gaugeRecord{Value: v, Metadata: agg.keysSeen[k]}
	}
	agg.mu.Unlock()

	raw, err := json.Marshal(records)
	if err != nil {
		g.log.WithError(err).Error("statsd: encoding gauges for save")
		return
	}

	if g.gzipped {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			g.log.WithError(err).Error("statsd: gzip-compressing gauges")
			return
		}
		if err := zw.Close(); err != nil {
			g.log.WithError(err).Error("statsd: gzip-compressing gauges")
			return
		}
		raw = buf.Bytes()
	}

	if err := os.WriteFile(g.path, raw, 0o644); err != nil {
		g.log.WithError(err).WithField("path", g.path).Error("statsd: saving gauges")
		return
	}
	g.log.WithField("count", len(records)).Info("statsd: saved gauges")
}

func maybeGunzip(raw []byte) ([]byte, error) {
	if len(raw) < 2 || !bytes.Equal(raw[:2], gzipMagic) {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
