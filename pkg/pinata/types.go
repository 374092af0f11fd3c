package pinata

import "time"

// Metadata is the pinataMetadata attached to a pin.
type Metadata struct {
	Name      string            `json:"name,omitempty"`
	KeyValues map[string]string `json:"keyvalues,omitempty"`
}

// PinResponse is returned by pinFileToIPFS and pinJSONToIPFS.
type PinResponse struct {
	IpfsHash    string    `json:"IpfsHash"`
	PinSize     int64     `json:"PinSize"`
	Timestamp   time.Time `json:"Timestamp"`
	IsDuplicate bool      `json:"isDuplicate,omitempty"`
}

// pinJSONRequest is the body of pinJSONToIPFS.
type pinJSONRequest struct {
	PinataContent  interface{} `json:"pinataContent"`
	PinataMetadata *Metadata   `json:"pinataMetadata,omitempty"`
}
