package gcp

var (
	APISRequired = []string{"compute.googleapis.com", "cloudresourcemanager.googleapis.com", "logging.googleapis.com", "monitoring.googleapis.com"}

	// Google frontend and health checker source ranges, see
	// https://cloud.google.com/load-balancing/docs/health-checks.
	HealthCheckSourceRanges = []string{"130.211.0.0/22", "35.191.0.0/16"}

	ValidRegions = []string{
		"africa-south1",
		"asia-east1", "asia-east2",
		"asia-northeast1", "asia-northeast2", "asia-northeast3",
		"asia-south1", "asia-south2",
		"asia-southeast1", "asia-southeast2",
		"australia-southeast1", "australia-southeast2",
		"europe-central2", "europe-north1", "europe-southwest1",
		"europe-west1", "europe-west2", "europe-west3", "europe-west4",
		"europe-west6", "europe-west8", "europe-west9", "europe-west10", "europe-west12",
		"me-central1", "me-west1",
		"northamerica-northeast1", "northamerica-northeast2",
		"southamerica-east1", "southamerica-west1",
		"us-central1",
		"us-east1", "us-east4", "us-east5",
		"us-south1",
		"us-west1", "us-west2", "us-west3", "us-west4",
	}
)

const (
	OperationDone = "DONE"

	APIServiceEnabled = "ENABLED"
	ProjectActive     = "ACTIVE"

	HealthStateHealthy = "HEALTHY"

	SecurityPolicyDefaultPriority = int64(2147483647)
	SecurityPolicyDefaultMatch    = "*"
	SecurityPolicyAllow           = "allow"

	VersionedExprSrcIPsV1 = "SRC_IPS_V1"

	AccessConfigNAT  = "ONE_TO_ONE_NAT"
	AccessConfigName = "External NAT"
)
