package core

import "github.com/book-expert/events"

// DescriptionCreatedEvent announces a finished description and where its audio lives.
type DescriptionCreatedEvent struct {
	Header      events.EventHeader `json:"header"`
	AudioKey    string             `json:"audio_key"`
	AudioURL    string             `json:"audio_url"`
	Caption     string             `json:"caption"`
	Description string             `json:"description"`
	Hazard      Hazard             `json:"hazard"`
}

// DescribeRequestEvent asks a worker to describe an image already in the image bucket.
type DescribeRequestEvent struct {
	Header   events.EventHeader `json:"header"`
	ImageKey string             `json:"image_key"`
	Filename string             `json:"filename"`
}

// DescribeFailedEvent is the reply sent when a DescribeRequestEvent cannot be served.
// ClientError is set when the request itself was at fault.
type DescribeFailedEvent struct {
	Header      events.EventHeader `json:"header"`
	Error       string             `json:"error"`
	ClientError bool               `json:"client_error"`
}
