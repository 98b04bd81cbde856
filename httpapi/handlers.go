package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tsawler/pagenum/model"
	"github.com/tsawler/pagenum/pdferr"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath"`
	Overwrite  bool   `json:"overwrite"`
	Empty      bool   `json:"empty"`
	Saved      bool   `json:"saved"`
	Changed    bool   `json:"changed"`
	AutoSave   bool   `json:"autoSave"`
	Running    bool   `json:"running"`
	Queued     int    `json:"queued"`
	LastError  string `json:"lastError,omitempty"`
}

// ReadResponse is the body of a successful POST /reload.
type ReadResponse struct {
	Path           string `json:"path"`
	Pages          int    `json:"pages"`
	Labels         int    `json:"labels"`
	Outline        bool   `json:"outline"`
	OutlineWarning string `json:"outlineWarning,omitempty"`
}

// Label is one label range as exchanged over the API.
type Label struct {
	Index  int    `json:"index"`
	Prefix string `json:"prefix,omitempty"`
	Start  int    `json:"start"`
	Style  string `json:"style"`
}

// Bookmark is one outline node with its subtree.
type Bookmark struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Page     int        `json:"page"` // one-based
	Children []Bookmark `json:"children,omitempty"`
}

// CropBox is the body of PUT /cropbox, in PDF user space units.
type CropBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type labelBody struct {
	Prefix string `json:"prefix"`
	Start  int    `json:"start"`
	Style  string `json:"style"`
}

type autoSaveBody struct {
	Enabled bool `json:"enabled"`
}

type outputBody struct {
	Path      string `json:"path"`
	Overwrite *bool  `json:"overwrite"`
}

func (srv *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		s := srv.session
		return StatusResponse{
			InputPath:  s.Input().Path(),
			OutputPath: s.Saver().OutputPath(),
			Overwrite:  s.Saver().Overwrite(),
			Empty:      s.Document().IsEmpty(),
			Saved:      s.Tracker().IsSaved(),
			Changed:    s.Tracker().HasChangedSinceLastRead(),
			AutoSave:   s.AutoSaver().Enabled(),
			Running:    s.Saver().IsRunning(),
			Queued:     s.Loop().Pending(),
			LastError:  s.LastError(),
		}, nil
	})
}

func (srv *Server) handleGetLabels(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		entries := srv.session.Document().Labels().Entries()
		out := make([]Label, len(entries))
		for i, e := range entries {
			out[i] = Label{Index: e.Index, Prefix: e.Range.Prefix, Start: e.Range.Start, Style: e.Range.Style.String()}
		}
		return out, nil
	})
}

func (srv *Server) handleAddLabel(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusCreated, func() (interface{}, error) {
		labels := srv.session.Document().Labels()
		if labels.IsEmpty() {
			return nil, fail(http.StatusConflict, "no document loaded")
		}
		index := labels.Add()
		rng, _ := labels.Get(index)
		return Label{Index: index, Start: rng.Start, Style: rng.Style.String()}, nil
	})
}

func (srv *Server) handlePutLabel(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid page index")
		return
	}
	var body labelBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	style, err := model.ParseStyle(body.Style)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Start < 1 {
		writeError(w, http.StatusBadRequest, "start must be at least 1")
		return
	}
	rng := model.LabelRange{Prefix: body.Prefix, Start: body.Start, Style: style}

	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		labels := srv.session.Document().Labels()
		if labels.IsEmpty() {
			return nil, fail(http.StatusConflict, "no document loaded")
		}
		if n := srv.pageCount(); n > 0 && index >= n {
			return nil, fail(http.StatusBadRequest, "page index beyond the last page")
		}
		if !labels.Has(index) {
			labels.PutNew(index, rng)
		} else {
			labels.SetPrefix(index, rng.Prefix)
			labels.SetStart(index, rng.Start)
			labels.SetStyle(index, rng.Style)
		}
		return Label{Index: index, Prefix: rng.Prefix, Start: rng.Start, Style: rng.Style.String()}, nil
	})
}

// pageCount returns the page count of the last successful read, or 0
func (srv *Server) pageCount() int {
	ev := srv.session.Input().LastRead()
	if ev == nil || !ev.Result.Succeeded {
		return 0
	}
	return ev.Result.PageCount
}

func (srv *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid page index")
		return
	}
	if index == 0 {
		writeError(w, http.StatusBadRequest, "the label range at index 0 cannot be removed")
		return
	}

	srv.call(w, r, http.StatusNoContent, func() (interface{}, error) {
		labels := srv.session.Document().Labels()
		if !labels.Has(index) {
			return nil, fail(http.StatusNotFound, "no label range at index "+strconv.Itoa(index))
		}
		labels.RemoveExisting(index)
		return nil, nil
	})
}

func (srv *Server) handleGetOutline(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		o := srv.session.Document().Outline()
		if o == nil {
			return nil, fail(http.StatusNotFound, "no outline")
		}
		return bookmarks(o.Root()), nil
	})
}

func bookmarks(n *model.Node) []Bookmark {
	out := make([]Bookmark, 0, n.ChildCount())
	for _, c := range n.Children() {
		b, ok := c.Bookmark()
		if !ok {
			continue
		}
		out = append(out, Bookmark{
			ID:       c.ID().String(),
			Title:    b.Title,
			Page:     b.PageIndex + 1,
			Children: bookmarks(c),
		})
	}
	return out
}

func (srv *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bookmark id")
		return
	}

	srv.call(w, r, http.StatusNoContent, func() (interface{}, error) {
		o := srv.session.Document().Outline()
		if o == nil || !o.RemoveByID(id) {
			return nil, fail(http.StatusNotFound, "no bookmark "+id.String())
		}
		return nil, nil
	})
}

func (srv *Server) handlePutCropBox(w http.ResponseWriter, r *http.Request) {
	var body CropBox
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	box := model.NewRect(model.Point{X: body.X1, Y: body.Y1}, model.Point{X: body.X2, Y: body.Y2})
	if box.IsEmpty() {
		writeError(w, http.StatusBadRequest, "empty crop box")
		return
	}

	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		srv.session.Document().CropBox().Set(&box)
		return body, nil
	})
}

func (srv *Server) handleDeleteCropBox(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusNoContent, func() (interface{}, error) {
		srv.session.Document().CropBox().Set(nil)
		return nil, nil
	})
}

func (srv *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		s := srv.session
		if s.Input().Path() == "" {
			return nil, fail(http.StatusConflict, "no input path")
		}
		res := s.Reload().Result
		if !res.Succeeded {
			return nil, fail(readStatus(res.Err), res.ErrorMessage)
		}
		return ReadResponse{
			Path:           res.Path,
			Pages:          res.PageCount,
			Labels:         s.Document().Labels().Len(),
			Outline:        s.Document().Outline() != nil,
			OutlineWarning: res.OutlineErrorMessage,
		}, nil
	})
}

// readStatus maps a failed read to an HTTP status.
func readStatus(err error) int {
	code, _ := pdferr.GetCode(err)
	switch code {
	case pdferr.CodeNotFound:
		return http.StatusNotFound
	case pdferr.CodeEncrypted, pdferr.CodeMalformed, pdferr.CodeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (srv *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	srv.call(w, r, http.StatusAccepted, func() (interface{}, error) {
		s := srv.session
		if s.Document().IsEmpty() {
			return nil, fail(http.StatusConflict, "no document loaded")
		}
		if s.Saver().OutputPath() == "" {
			return nil, fail(http.StatusConflict, "no output path")
		}
		job := s.Saver().Save()
		return map[string]string{"job": job.ID.String()}, nil
	})
}

func (srv *Server) handlePutAutoSave(w http.ResponseWriter, r *http.Request) {
	var body autoSaveBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		s := srv.session
		if body.Enabled && s.Document().IsEmpty() {
			return nil, fail(http.StatusConflict, "no document loaded")
		}
		s.AutoSaver().SetEnabled(body.Enabled)
		return body, nil
	})
}

func (srv *Server) handlePutOutput(w http.ResponseWriter, r *http.Request) {
	var body outputBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	srv.call(w, r, http.StatusOK, func() (interface{}, error) {
		sv := srv.session.Saver()
		sv.SetOutputPath(body.Path)
		if body.Overwrite != nil {
			sv.SetOverwrite(*body.Overwrite)
		}
		return map[string]interface{}{"path": sv.OutputPath(), "overwrite": sv.Overwrite()}, nil
	})
}
