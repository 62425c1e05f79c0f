package entity

type ResultStatus string

const (
	ResultStatusSuccess           ResultStatus = "SUCCESS"
	ResultStatusFailed            ResultStatus = "FAILED"
	ResultStatusNoFramesExtracted ResultStatus = "NO_FRAMES_EXTRACTED"
)

// ResultMessage is the worker's outcome report, consumed from the results
// queue.
type ResultMessage struct {
	VideoID    string       `json:"videoId"`
	Status     ResultStatus `json:"status"`
	ResultPath string       `json:"resultPath,omitempty"`
}

// StorageEventBody is the bucket-notification payload consumed from the
// media events queue. The transport may nest it one level inside an outer
// envelope with a string Body field.
type StorageEventBody struct {
	Records []StorageEventRecord `json:"Records"`
}

type StorageEventRecord struct {
	EventName string          `json:"eventName"`
	EventTime string          `json:"eventTime"`
	S3        StorageS3Detail `json:"s3"`
}

type StorageS3Detail struct {
	Bucket StorageBucket `json:"bucket"`
	Object StorageObject `json:"object"`
}

type StorageBucket struct {
	Name string `json:"name"`
}

type StorageObject struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"eTag"`
}
