package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/pkg/constants"
)

// lokiWriter implements io.Writer that pushes JSON log lines to Loki's push API.
// Each Write() call is one log line.
type lokiWriter struct {
	endpoint string
	username string
	password string
	client   *http.Client
	labels   map[string]string
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func newLokiWriter(cfg *config.Config) *lokiWriter {
	service := cfg.Observability.ServiceName
	if service == "" {
		service = constants.AppName
	}
	return &lokiWriter{
		endpoint: strings.TrimRight(cfg.Logging.Output.Loki.Endpoint, "/") + "/loki/api/v1/push",
		username: cfg.Logging.Output.Loki.Username,
		password: cfg.Logging.Output.Loki.Password,
		client:   &http.Client{Timeout: 3 * time.Second},
		labels:   map[string]string{"service": service, "env": cfg.Server.Environment},
	}
}

func (lw *lokiWriter) Write(p []byte) (int, error) {
	body, err := json.Marshal(lokiPush{Streams: []lokiStream{{
		Stream: lw.labels,
		Values: [][2]string{{strconv.FormatInt(time.Now().UnixNano(), 10), strings.TrimRight(string(p), "\n")}},
	}}})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, lw.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if lw.username != "" {
		req.SetBasicAuth(lw.username, lw.password)
	}

	resp, err := lw.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("loki push: status %d", resp.StatusCode)
	}
	return len(p), nil
}
