package http

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"irisforest/dataset"
	"irisforest/monitoring"
	"irisforest/predictor"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// ErrorKindHeader carries the error code on failed form posts.
const ErrorKindHeader = "X-Error-Kind"

const kindBadRequest = "bad_request"

var fieldLabels = map[string]string{
	"sepal_length": "Sepal length",
	"sepal_width":  "Sepal width",
	"petal_length": "Petal length",
	"petal_width":  "Petal width",
}

type formField struct {
	Name  string
	Label string
	Value string
}

type pageData struct {
	Fields     []formField
	Prediction string
	Error      string
	ErrorKind  string
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Handlers holds what every route needs. Stats and watcher may be nil.
type Handlers struct {
	service  *predictor.Service
	stats    *monitoring.PredictionStats
	watcher  *monitoring.ArtifactWatcher
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandlers(service *predictor.Service, stats *monitoring.PredictionStats, watcher *monitoring.ArtifactWatcher, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		service: service,
		stats:   stats,
		watcher: watcher,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
	mux.HandleFunc("POST /api/predict", h.handlePredictAPI)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /ws/predict", h.handleStream)
}

// NewRouter registers the routes and wraps them in the middleware chain.
func NewRouter(h *Handlers, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	h.Register(mux)

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		RequestSizeMiddleware(DefaultMaxBodyBytes),
	)
	return chain(mux)
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{Fields: formFields(nil)})
}

func (h *Handlers) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	if err := parseFormBody(r); err != nil {
		data := pageData{Fields: formFields(nil), Error: err.Error(), ErrorKind: kindBadRequest}
		w.Header().Set(ErrorKindHeader, kindBadRequest)
		h.renderPage(w, r, http.StatusBadRequest, data)
		return
	}

	data := pageData{Fields: formFields(r.PostForm)}
	prediction, _, err := h.service.PredictFields(r.Context(), predictor.FormValues(r.PostForm))
	if err != nil {
		code := predictor.ErrorCode(err)
		data.Error = err.Error()
		data.ErrorKind = code
		w.Header().Set(ErrorKindHeader, code)
		h.renderPage(w, r, errorStatus(err), data)
		return
	}
	data.Prediction = prediction.Species
	h.renderPage(w, r, http.StatusOK, data)
}

func (h *Handlers) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	src, err := requestFields(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: kindBadRequest})
		return
	}
	prediction, _, err := h.service.PredictFields(r.Context(), src)
	if err != nil {
		writeJSON(w, errorStatus(err), errorResponse{Error: err.Error(), Kind: predictor.ErrorCode(err)})
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

func (h *Handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	header := h.service.Header()
	if header == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "model was not loaded from an artifact", Kind: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, header)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"stale":  h.watcher.Stale(),
	}
	if header := h.service.Header(); header != nil {
		response["digest"] = header.Digest
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats
	if stats == nil {
		stats = monitoring.NewPredictionStats()
	}
	writeJSON(w, http.StatusOK, stats.Snapshot())
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("render page", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func formFields(values map[string][]string) []formField {
	fields := make([]formField, len(dataset.FeatureNames))
	for i, name := range dataset.FeatureNames {
		fields[i] = formField{Name: name, Label: fieldLabels[name]}
		if v := values[name]; len(v) > 0 {
			fields[i].Value = v[0]
		}
	}
	return fields
}

// requestFields decodes a JSON object body, or a form body for any other
// content type.
func requestFields(r *http.Request) (predictor.FieldSource, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		return predictor.JSONFields(body), nil
	}
	if err := parseFormBody(r); err != nil {
		return nil, err
	}
	return predictor.FormValues(r.PostForm), nil
}

// parseFormBody fills r.PostForm from a urlencoded or multipart body.
func parseFormBody(r *http.Request) error {
	err := r.ParseMultipartForm(DefaultMaxBodyBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	return nil
}

// errorStatus is 400 for bad input and 500 for everything the model side failed at.
func errorStatus(err error) int {
	if predictor.IsInputError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
