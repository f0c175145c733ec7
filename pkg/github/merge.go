package github

// MergeWebhooks returns the desired webhook set for an account: the global list
// unioned with the account's override list, keyed by URL.
//
// Global entries come first in configured order. An override entry with the same URL
// replaces the global one in place; remaining override entries follow in configured order.
// Within one list a repeated URL keeps the position of its first occurrence and the
// settings of its last. The result never aliases the inputs.
func MergeWebhooks(global, override []Webhook) []Webhook {
	merged := make([]Webhook, 0, len(global)+len(override))
	index := make(map[string]int, len(global)+len(override))

	add := func(webhook Webhook) {
		if i, exists := index[webhook.URL]; exists {
			merged[i] = copyWebhook(webhook)
			return
		}
		index[webhook.URL] = len(merged)
		merged = append(merged, copyWebhook(webhook))
	}

	for _, webhook := range global {
		add(webhook)
	}
	for _, webhook := range override {
		add(webhook)
	}

	return merged
}

// copyWebhook creates a deep copy of a webhook
func copyWebhook(webhook Webhook) Webhook {
	copied := webhook
	if webhook.Events != nil {
		copied.Events = make([]string, len(webhook.Events))
		copy(copied.Events, webhook.Events)
	}
	if webhook.Active != nil {
		active := *webhook.Active
		copied.Active = &active
	}
	return copied
}
