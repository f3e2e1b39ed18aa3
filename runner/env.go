package runner

import (
	"runtime"
	"sort"
	"strings"
)

// BuildEnv overlays the override maps, in order, onto base (KEY=VALUE
// entries). When any override is present it also sets encoding variables so
// that tools written in Python emit UTF-8 into the pipes.
func BuildEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	var order []string
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := env[k]; !seen {
			order = append(order, k)
		}
		env[k] = v
	}

	customized := false
	var added []string
	for _, o := range overrides {
		for k, v := range o {
			customized = true
			if _, seen := env[k]; !seen {
				added = append(added, k)
			}
			env[k] = v
		}
	}
	if customized {
		defaults := map[string]string{"PYTHONIOENCODING": "utf-8"}
		if runtime.GOOS == "windows" {
			defaults["PYTHONUTF8"] = "1"
		}
		for k, v := range defaults {
			if _, ok := env[k]; !ok {
				env[k] = v
				added = append(added, k)
			}
		}
	}

	sort.Strings(added)
	order = append(order, added...)
	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+env[k])
	}
	return out
}
