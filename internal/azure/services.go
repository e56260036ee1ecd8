package azure

import (
	"fmt"
	"strings"
)

// NormalizeServiceIDs expands bare service names into full resource IDs.
// Values already shaped like a resource ID pass through unchanged.
func NormalizeServiceIDs(services []string, subscriptionID, resourceGroup string) []string {
	normalized := make([]string, 0, len(services))
	for _, service := range services {
		if !strings.HasPrefix(service, "/subscriptions/") {
			service = fmt.Sprintf("/subscriptions/%s/resourcegroups/%s/providers/microsoft.cognitiveservices/accounts/%s",
				subscriptionID, resourceGroup, service)
		}
		normalized = append(normalized, service)
	}
	return normalized
}
