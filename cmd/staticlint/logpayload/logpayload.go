// Package logpayload содержит анализатор, который запрещает писать в журнал
// сырые тела запросов: поля zap с именами payload, body и request_body.
// Тела вызовов Yotpo попадают в журнал только после очистки.
package logpayload

import (
	"go/ast"
	"go/constant"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/types/typeutil"
)

const zapPkg = "go.uber.org/zap"

var forbidden = map[string]struct{}{
	"payload":      {},
	"body":         {},
	"request_body": {},
}

// Analyzer запрещает поля zap с сырым телом запроса.
var Analyzer = &analysis.Analyzer{
	Name: "logpayload",
	Doc:  "запрещает поля zap payload, body и request_body: тела запросов логируются только после очистки",
	Run:  run,
}

// NewAnalyzer возвращает анализатор logpayload.
func NewAnalyzer() *analysis.Analyzer {
	return Analyzer
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || len(call.Args) == 0 {
				return true
			}

			fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
			if !ok || fn.Pkg() == nil || fn.Pkg().Path() != zapPkg {
				return true
			}
			// Конструкторы полей возвращают zap.Field
			sig, ok := fn.Type().(*types.Signature)
			if !ok || sig.Recv() != nil || sig.Results().Len() != 1 {
				return true
			}
			if named, ok := sig.Results().At(0).Type().(*types.Named); !ok || named.Obj().Name() != "Field" {
				return true
			}

			tv, ok := pass.TypesInfo.Types[call.Args[0]]
			if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
				return true
			}
			key := strings.ToLower(constant.StringVal(tv.Value))
			if _, bad := forbidden[key]; bad {
				pass.Reportf(call.Pos(), "поле %q пишет в журнал сырое тело запроса", key)
			}
			return true
		})
	}
	return nil, nil
}
