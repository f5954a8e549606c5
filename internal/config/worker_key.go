package config

type WorkerKeyStruct struct {
	IngestViolationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	IngestViolationsQueue: "ingest_violations_queue",
}
