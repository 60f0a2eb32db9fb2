package chunk

import "repochunk/internal/security"

// markSecrets flags chunks whose rendered content trips the credential
// scanner. Content is left intact; redaction is up to the consumer.
func markSecrets(chunks []Chunk) {
	sc := security.NewScanner()
	for i := range chunks {
		chunks[i].HasSecrets = sc.HasSecrets(chunks[i].Content)
	}
}
