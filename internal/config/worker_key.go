package config

type WorkerKeyStruct struct {
	EmailDispatchQueue       string
	CertificateDispatchQueue string
}

var WorkerKey = &WorkerKeyStruct{
	EmailDispatchQueue:       "email_dispatch_queue",
	CertificateDispatchQueue: "certificate_dispatch_queue",
}
