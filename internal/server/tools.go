package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session id returned by marker_session_open",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Single-image analysis
		{
			Name:        "marker_detect",
			Description: "Segment an image with the server's colour range and report the marker regions found. When exactly four regions are found, also returns the corner correspondence and a one-shot pose solve (no jitter filtering).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"mask_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the binary mask as PNG",
					},
					"crop_padding": map[string]interface{}{
						"type":        "integer",
						"description": "When set, attach a base64 PNG crop of every region grown by this many pixels (0 crops the bounding box exactly)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "marker_sample_hsv",
			Description: "Read the HSV value (H 0-179, S and V 0-255) at one or more pixels and return the tightest HSV range containing all of them. Click-sample the marker material to tune the segmentation range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "integer"},
								"y": map[string]interface{}{"type": "integer"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Pixels to sample (0-based, from top-left)",
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Tracking sessions
		{
			Name:        "marker_session_open",
			Description: "Start a tracking session. Each session keeps its own jitter filter state across frames.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional YAML config file. Defaults to the server configuration.",
					},
				},
			},
		},
		{
			Name:        "marker_track_frame",
			Description: "Run the full pipeline (segment, extract, correspond, jitter gate, pose solve) on the next frame of a session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
					"path":       pathProperty(),
					"overlay_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the annotated frame (PNG or JPEG by extension)",
					},
				},
				"required": []string{"session_id", "path"},
			},
		},
		{
			Name:        "marker_session_reset",
			Description: "Forget the session's last accepted correspondence; the next detection is accepted unconditionally.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "marker_session_close",
			Description: "End a tracking session and release its state.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
				},
				"required": []string{"session_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
