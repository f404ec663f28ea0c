package metrics

import (
	"fmt"
	"regexp"

	"drone-compare/src/drone"
)

// SystemStatus folds the statuses of the Gen2 stages whose name matches
// pattern into one verdict. It starts at success; failure is absorbing,
// skipped leaves success in place and any other status turns the result
// into failure. No matching stage yields success.
//
// Every stage must be a Gen2 stage and there must be at least one;
// otherwise the error wraps drone.ErrContractViolation.
func SystemStatus(stages []drone.Stage, pattern *regexp.Regexp) (drone.Status, error) {
	if len(stages) == 0 {
		return drone.StatusUnknown, fmt.Errorf("%w: system status of a build without stages", drone.ErrContractViolation)
	}

	status := drone.StatusSuccess
	for _, stage := range stages {
		if _, ok := stage.(*drone.Gen2Stage); !ok {
			return drone.StatusUnknown, fmt.Errorf("%w: system status requires drone2 stages, got %T for %q",
				drone.ErrContractViolation, stage, stage.Name())
		}
		if !pattern.MatchString(stage.Name()) {
			continue
		}
		status = foldStatus(status, stage.Status())
	}
	return status, nil
}

func foldStatus(acc, next drone.Status) drone.Status {
	if acc == drone.StatusFailure {
		return drone.StatusFailure
	}
	switch next {
	case drone.StatusSuccess, drone.StatusSkipped:
		return drone.StatusSuccess
	default:
		return drone.StatusFailure
	}
}
