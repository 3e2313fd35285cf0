package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"restronaut/internal/document"
	"restronaut/internal/fileutil"
	"restronaut/internal/logging"
)

const curbsideRootError = "Can only accept `PrintRequest` or `PopupRequest`"

// curbsideResponse is returned after a curbside request is written.
type curbsideResponse struct {
	Type            string `json:"type"`
	Message         string `json:"message"`
	DestinationPath string `json:"destinationPath"`
}

type createFileRequest struct {
	Filename string `json:"filename"`
	XML      string `json:"xml"`
}

func (s *apiServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	return body, true
}

// handleOrder writes an order document to the order folder as
// ORDER-{ReferenceNumber}.xml, via a .vendure temp name.
func (s *apiServer) handleOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	tree, err := document.Parse(body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid XML format", "details": err.Error()})
		return
	}
	ref := document.ReferenceNumber(tree)
	if ref == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "ReferenceNumber not found in XML"})
		return
	}
	if !safeFileName(ref) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "ReferenceNumber is not a valid file name"})
		return
	}

	base := "ORDER-" + ref
	path, err := fileutil.WriteThenRename(s.ingress.OrderDir, base+".vendure", base+".xml", body)
	if err != nil {
		s.ingressFailed(w, "order", err)
		return
	}
	s.log().Info("order accepted",
		logging.String("reference", ref),
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldEventType, "order_ingested"),
	)
	s.writeJSON(w, http.StatusOK, map[string]string{"destinationPath": path})
}

// handleCurbside writes popup and print requests to the curbside folder.
func (s *apiServer) handleCurbside(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": {curbsideRootError}})
		return
	}
	tree, err := document.Parse(body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid XML format", "details": err.Error()})
		return
	}

	id := s.now().UnixMilli()
	root := tree.Root().Tag
	var (
		kind    string
		content []byte
		message string
	)
	switch root {
	case document.RootPopupRequest:
		values := map[string]string{}
		var problems []string
		for _, field := range []string{"Terminal", "Line"} {
			value := document.Value(document.FirstElement(tree, field))
			if strings.TrimSpace(value) == "" {
				problems = append(problems, field+" is required.")
				continue
			}
			values[field] = value
		}
		if len(problems) > 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": problems})
			return
		}
		rendered, err := document.PopupRequestXML(values["Terminal"], values["Line"])
		if err != nil {
			s.ingressFailed(w, "curbside", err)
			return
		}
		kind, content, message = "popup", []byte(rendered), "Popup created successfully."
	case document.RootPrintRequest:
		kind, content, message = "print", body, "Print created successfully."
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string][]string{"errors": {curbsideRootError}})
		return
	}

	base := fmt.Sprintf("curbside_%s_req_%d", kind, id)
	path, err := fileutil.WriteThenRename(s.ingress.CurbsideDir, base+".temp", base+".xml", content)
	if err != nil {
		s.ingressFailed(w, "curbside", err)
		return
	}
	s.log().Info("curbside request accepted",
		logging.String("type", root),
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldEventType, "curbside_ingested"),
	)
	s.writeJSON(w, http.StatusOK, curbsideResponse{Type: root, Message: message, DestinationPath: path})
}

// handleCreateFile writes {filename}.xml into the create-file folder.
func (s *apiServer) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req createFileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "Filename is required")
		return
	}
	if !safeFileName(req.Filename) {
		s.writeError(w, http.StatusBadRequest, "Filename must not contain path separators")
		return
	}
	if strings.TrimSpace(s.ingress.CreateFileDir) == "" {
		s.writeError(w, http.StatusInternalServerError, "ingress.create_file_dir not configured")
		return
	}

	path, err := fileutil.WriteFile(s.ingress.CreateFileDir, req.Filename+".xml", []byte(req.XML))
	if err != nil {
		s.ingressFailed(w, "create-file", err)
		return
	}
	s.log().Info("file created",
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldEventType, "file_created"),
	)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "File created successfully", "path": path})
}

func (s *apiServer) ingressFailed(w http.ResponseWriter, endpoint string, err error) {
	logging.ErrorWithContext(s.log(), "ingress write failed", "ingress_failed",
		logging.String("endpoint", endpoint),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the ingress folder exists and is writable"),
	)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create file", "details": err.Error()})
}

// safeFileName rejects names that would escape the target folder.
func safeFileName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "\x00")
}
