// Package frontmatter reads normalized career documents from disk.
//
// A document file starts with a YAML front matter block delimited by "---"
// lines, followed by the free-text body:
//
//	---
//	id: acme-engineer
//	category: job
//	organization: Acme
//	title: Engineer
//	start: 2019-03
//	end: present
//	skills: [Go, Kubernetes]
//	topics: [payments]
//	outcomes:
//	  - Cut p99 latency by 40%
//	---
//	Built the settlement service...
//
// Dates accept YYYY, YYYY-MM or YYYY-MM-DD. An end of "present", "current"
// or nothing leaves the range open.
package frontmatter
