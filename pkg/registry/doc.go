// Package registry loads named upstream targets from a YAML file so relay
// callers can say "supplier": "openrouter" instead of shipping a base URL
// and credential on every request.
//
// # File format
//
//	suppliers:
//	  - name: openrouter
//	    base_url: https://openrouter.ai/api
//	    api_key_env: OPENROUTER_API_KEY
//	  - name: lab
//	    base_url: https://llm.lab.example.com
//	    api_key: sk-lab-0000
//
// Each entry needs a unique name, a base URL that passes the relay's
// normalization rules (scheme and host present, no loopback), and exactly
// one credential source. api_key_env entries resolve from the environment
// at load time, so rotated secrets take effect on the next reload.
//
// # Snapshots and hot reload
//
// Resolve and Names read from an immutable snapshot under a read lock.
// Watch hot-reloads the file on change with a debounce window; a reload
// that fails to read, parse, or validate keeps the previous snapshot in
// effect and records the error, so a bad edit never takes running traffic
// down.
package registry
