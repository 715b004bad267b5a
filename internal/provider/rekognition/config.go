package rekognition

// Config holds configuration for AWS Rekognition verifier
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// MinConfidence is the Rekognition face confidence (0-100) a frame needs.
	MinConfidence float64

	// MinQuality is the minimum of (sharpness+brightness)/200.
	MinQuality float64
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:        "us-east-1",
		MinConfidence: 90,
		MinQuality:    0.5,
	}
}
