package job

import "context"

// CheckForAndSurfaceErrors переводит флаг DisplayErrorInBm в статус шага.
// ERROR возвращается только для значения true типа bool; отсутствие шага,
// запуска, контекста или флага, а также любое другое значение дают OK.
func CheckForAndSurfaceErrors(_ Parameters, step *StepExecution) Status {
	ec := step.Context()
	if ec == nil {
		return OK("")
	}
	if flag, ok := ec[DisplayErrorInBm].(bool); ok && flag {
		return Error("Yotpo integration finished with errors, see the service log")
	}
	return OK("")
}

// CheckForAndSurfaceErrorsStep: CheckForAndSurfaceErrors в виде шага задания.
func CheckForAndSurfaceErrorsStep(_ context.Context, params Parameters, step *StepExecution) Status {
	return CheckForAndSurfaceErrors(params, step)
}
