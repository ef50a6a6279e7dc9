package obs

import (
	"path/filepath"
	"strings"

	"github.com/mkondo/battlewatch/domain/monitor"
)

// StartRecording asks OBS to begin recording the current output.
func (c *Client) StartRecording() error {
	return c.call("StartRecord", nil, nil)
}

// StopRecording asks OBS to stop recording.
func (c *Client) StopRecording() error {
	return c.call("StopRecord", nil, nil)
}

// Status reports the recorder state. Any transport or protocol failure maps
// to StatusUnknown, never to a definite answer.
func (c *Client) Status() monitor.RecStatus {
	var out struct {
		OutputActive bool `json:"outputActive"`
	}
	if err := c.call("GetRecordStatus", nil, &out); err != nil {
		c.logger.Debug("record status query failed", "error", err)
		return monitor.StatusUnknown
	}
	if out.OutputActive {
		return monitor.StatusRecording
	}
	return monitor.StatusStopped
}

// UpdateText rewrites the content of a text input on the output scene.
func (c *Client) UpdateText(source, text string) error {
	req := struct {
		InputName     string         `json:"inputName"`
		InputSettings map[string]any `json:"inputSettings"`
		Overlay       bool           `json:"overlay"`
	}{InputName: source, InputSettings: map[string]any{"text": text}, Overlay: true}
	return c.call("SetInputSettings", req, nil)
}

// TakeScreenshot saves a snapshot of the named source to outPath. The image
// format follows the file extension, matching the codec's convention.
func (c *Client) TakeScreenshot(source, outPath string) error {
	format := "png"
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".jpg", ".jpeg":
		format = "jpg"
	}
	req := struct {
		SourceName    string `json:"sourceName"`
		ImageFormat   string `json:"imageFormat"`
		ImageFilePath string `json:"imageFilePath"`
	}{SourceName: source, ImageFormat: format, ImageFilePath: outPath}
	return c.call("SaveSourceScreenshot", req, nil)
}
