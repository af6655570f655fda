package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/marker-pose/internal/config"
	"github.com/ironsheep/marker-pose/internal/detection"
	"github.com/ironsheep/marker-pose/internal/imaging"
	"github.com/ironsheep/marker-pose/internal/pose"
	"github.com/ironsheep/marker-pose/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "marker_detect", "marker_track_frame").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// argError marks a failure caused by the caller's arguments rather than by
// the tool itself.
type argError struct{ err error }

func (e *argError) Error() string { return e.err.Error() }
func (e *argError) Unwrap() error { return e.err }

func badArgs(format string, a ...interface{}) error {
	return &argError{err: fmt.Errorf(format, a...)}
}

// decodeArgs unmarshals tool arguments, treating absent arguments as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &argError{err: fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed or missing arguments return -32602; tool execution errors return
// a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Debug("tool failed", zap.String("tool", params.Name), zap.Error(err))
		var ae *argError
		if errors.As(err, &ae) {
			return errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "marker_detect":
		return s.handleMarkerDetect(args)
	case "marker_sample_hsv":
		return s.handleMarkerSampleHSV(args)

	case "marker_session_open":
		return s.handleSessionOpen(args)
	case "marker_track_frame":
		return s.handleTrackFrame(args)
	case "marker_session_reset":
		return s.handleSessionReset(args)
	case "marker_session_close":
		return s.handleSessionClose(args)

	default:
		return nil, badArgs("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Single-image Handlers ===

type regionInfo struct {
	Area    float64                `json:"area"`
	X       int                    `json:"x"`
	Y       int                    `json:"y"`
	Width   int                    `json:"width"`
	Height  int                    `json:"height"`
	Rotated *detection.RotatedRect `json:"rotated,omitempty"`
	Crop    *imaging.CropResult    `json:"crop,omitempty"`
}

func describeRegions(regions []detection.Region) []regionInfo {
	out := make([]regionInfo, len(regions))
	for i, r := range regions {
		out[i] = regionInfo{
			Area:   r.Area,
			X:      r.Box.Min.X,
			Y:      r.Box.Min.Y,
			Width:  r.Box.Dx(),
			Height: r.Box.Dy(),
		}
		if r.Variant == detection.VariantRotated {
			rr := r.Rotated
			out[i].Rotated = &rr
		}
	}
	return out
}

type detectResult struct {
	Width            int                  `json:"width"`
	Height           int                  `json:"height"`
	ForegroundPixels int                  `json:"foreground_pixels"`
	Regions          []regionInfo         `json:"regions"`
	Detected         bool                 `json:"detected"`
	Points           *pose.Correspondence `json:"points,omitempty"`
	Pose             *pose.PoseEstimate   `json:"pose,omitempty"`
}

type markerDetectArgs struct {
	Path     string `json:"path"`
	MaskPath string `json:"mask_path"`

	// CropPadding is a pointer so that an explicit 0 still requests crops.
	CropPadding *int `json:"crop_padding"`
}

func (s *Server) handleMarkerDetect(args json.RawMessage) (interface{}, error) {
	var a markerDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, badArgs("path is required")
	}

	frame, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	mask := s.cfg.Segmenter().Segment(frame)
	regions := detection.Extract(mask, s.cfg.ExtractOptions())

	if a.MaskPath != "" {
		if err := imaging.SaveImage(a.MaskPath, render.MaskImage(mask)); err != nil {
			return nil, err
		}
	}

	res := &detectResult{
		Width:            frame.Width(),
		Height:           frame.Height(),
		ForegroundPixels: mask.Count(),
		Regions:          describeRegions(regions),
	}
	if a.CropPadding != nil {
		for i, r := range regions {
			crop, err := imaging.Crop(frame, r.Box, *a.CropPadding, 1.0)
			if err != nil {
				return nil, err
			}
			res.Regions[i].Crop = crop
		}
	}

	if c, ok := pose.BuildCorrespondence(regions, s.cfg.Ordering()); ok {
		est := s.cfg.PoseSolver().Solve(c)
		res.Detected = true
		res.Points = &c
		res.Pose = &est
	}
	return res, nil
}

type hsvPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type markerSampleHSVArgs struct {
	Path   string     `json:"path"`
	Points []hsvPoint `json:"points"`
}

type sampleHSVResult struct {
	Samples []*imaging.HSVSample `json:"samples"`
	Range   imaging.HSVRange     `json:"range"`
}

func (s *Server) handleMarkerSampleHSV(args json.RawMessage) (interface{}, error) {
	var a markerSampleHSVArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" || len(a.Points) == 0 {
		return nil, badArgs("path and at least one point are required")
	}

	frame, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res := &sampleHSVResult{Samples: make([]*imaging.HSVSample, len(a.Points))}
	values := make([]imaging.HSV, len(a.Points))
	for i, p := range a.Points {
		sample, err := imaging.SampleHSV(frame, p.X, p.Y)
		if err != nil {
			return nil, badArgs("point %d: %v", i, err)
		}
		res.Samples[i] = sample
		values[i] = sample.HSV
	}
	res.Range, _ = imaging.RangeFromSamples(values)
	return res, nil
}

// === Session Handlers ===

type sessionOpenArgs struct {
	ConfigPath string `json:"config_path"`
}

type sessionInfo struct {
	SessionID string    `json:"session_id"`
	Created   time.Time `json:"created"`
	Frames    int       `json:"frames"`
}

func (s *Server) handleSessionOpen(args json.RawMessage) (interface{}, error) {
	var a sessionOpenArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	cfg := s.cfg
	if a.ConfigPath != "" {
		loaded, err := config.Load(a.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	sess, err := s.openSession(cfg)
	if err != nil {
		return nil, err
	}
	return &sessionInfo{SessionID: sess.id, Created: sess.created}, nil
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

func (a sessionArgs) validate() error {
	if a.SessionID == "" {
		return badArgs("session_id is required")
	}
	return nil
}

type trackFrameArgs struct {
	sessionArgs
	Path        string `json:"path"`
	OverlayPath string `json:"overlay_path"`
}

func (s *Server) handleTrackFrame(args json.RawMessage) (interface{}, error) {
	var a trackFrameArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, badArgs("path is required")
	}

	sess, err := s.lookupSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	// Tracked frames are read once, so they bypass the cache; any entry left
	// by an inspection tool on the same path is dropped.
	frame, err := imaging.LoadFrame(a.Path)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(a.Path)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	res := sess.tracker.Process(frame)

	if a.OverlayPath != "" {
		img := render.Overlay(frame, res, render.OverlayOptions{
			Camera:     sess.camera,
			AxisLength: sess.axisLength,
		})
		if err := imaging.SaveImage(a.OverlayPath, img); err != nil {
			return nil, err
		}
	}

	return res.Report(), nil
}

func (s *Server) handleSessionReset(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	sess, err := s.lookupSession(a.SessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.tracker.Reset()
	return &sessionInfo{SessionID: sess.id, Created: sess.created, Frames: sess.tracker.Frames()}, nil
}

func (s *Server) handleSessionClose(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	sess, err := s.closeSession(a.SessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &sessionInfo{SessionID: sess.id, Created: sess.created, Frames: sess.tracker.Frames()}, nil
}
