package schemas

import (
	"encoding/json"
)

// Wire types for the remote computer-use planning/execution service.

const (
	// ToolComputerUse is the tool type that grants the model browser control.
	ToolComputerUse = "computer_use_preview"
	// EnvironmentBrowser tags the controlled surface as a web browser.
	EnvironmentBrowser = "browser"
	// TruncationAuto lets the service drop old context instead of failing.
	TruncationAuto = "auto"

	// OutputComputerCall tags a pending action request in a response.
	OutputComputerCall = "computer_call"
	// InputComputerCallOutput tags the result payload for a computer call.
	InputComputerCallOutput = "computer_call_output"
	// InputImage tags an image result payload.
	InputImage = "input_image"
)

// ComputerTool declares the browser-automation capability and its display.
type ComputerTool struct {
	Type          string `json:"type"`
	DisplayWidth  int64  `json:"display_width"`
	DisplayHeight int64  `json:"display_height"`
	Environment   string `json:"environment"`
}

// NewComputerTool builds the tool declaration for a browser of the given size.
func NewComputerTool(width, height int64) ComputerTool {
	return ComputerTool{
		Type:          ToolComputerUse,
		DisplayWidth:  width,
		DisplayHeight: height,
		Environment:   EnvironmentBrowser,
	}
}

// ComputerScreenshot is the image-typed result of a computer call.
type ComputerScreenshot struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

// SafetyCheck is a confirmation the service attaches to a risky action.
type SafetyCheck struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// InputItem is one element of a request's input list. It is either a user
// message (Role, Content) or a computer call result (Type, CallID, Output).
type InputItem struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	Type                     string              `json:"type,omitempty"`
	CallID                   string              `json:"call_id,omitempty"`
	Output                   *ComputerScreenshot `json:"output,omitempty"`
	AcknowledgedSafetyChecks []SafetyCheck       `json:"acknowledged_safety_checks,omitempty"`
}

// UserMessage wraps a natural-language instruction as an input item.
func UserMessage(text string) InputItem {
	return InputItem{Role: "user", Content: text}
}

// ComputerCallOutput wraps a captured frame as the result of callID.
func ComputerCallOutput(callID, imageURL string, acks []SafetyCheck) InputItem {
	return InputItem{
		Type:                     InputComputerCallOutput,
		CallID:                   callID,
		Output:                   &ComputerScreenshot{Type: InputImage, ImageURL: imageURL},
		AcknowledgedSafetyChecks: acks,
	}
}

// ResponsesRequest is one turn sent to the remote service.
type ResponsesRequest struct {
	Model              string         `json:"model"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	Tools              []ComputerTool `json:"tools"`
	Input              []InputItem    `json:"input"`
	Truncation         string         `json:"truncation,omitempty"`
}

// OutputItem is one element of a response's output list. Only computer calls
// are interpreted; reasoning and message items are carried for logging.
type OutputItem struct {
	Type                string          `json:"type"`
	ID                  string          `json:"id,omitempty"`
	CallID              string          `json:"call_id,omitempty"`
	Status              string          `json:"status,omitempty"`
	Action              json.RawMessage `json:"action,omitempty"`
	PendingSafetyChecks []SafetyCheck   `json:"pending_safety_checks,omitempty"`
}

// ResponseError is the error object the service embeds in a failed response.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the service's reply to one turn.
type Response struct {
	ID     string         `json:"id"`
	Status string         `json:"status,omitempty"`
	Output []OutputItem   `json:"output"`
	Error  *ResponseError `json:"error,omitempty"`
}

// PendingCalls returns the computer calls of the response in service order.
func (r *Response) PendingCalls() []OutputItem {
	if r == nil {
		return nil
	}
	var calls []OutputItem
	for _, item := range r.Output {
		if item.Type == OutputComputerCall {
			calls = append(calls, item)
		}
	}
	return calls
}

// FrameDataURI embeds a base64 PNG frame in a data URI.
func FrameDataURI(b64 string) string {
	return "data:image/png;base64," + b64
}
