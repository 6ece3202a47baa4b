package httpapi

import (
	"html/template"

	"github.com/luhtfiimanal/go-thermo-serial/display"
)

type dashboardData struct {
	display.State
	Background template.CSS
	Device     string
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="2">
<title>Thermo dashboard</title>
<style>
body { margin: 0; min-height: 100vh; font-family: sans-serif; display: flex; flex-direction: column; align-items: center; justify-content: center; }
.main { font-size: 48px; font-weight: bold; }
.details { font-size: 12px; margin-top: 40px; text-align: center; }
.raw { font-family: monospace; font-size: 11px; opacity: .6; }
</style>
</head>
<body style="background: {{.Background}}">
<div class="main" id="temperature">{{.Temperature}}</div>
<div class="main" id="humidity">{{.Humidity}}</div>
<div class="details">
<div>Dew point: {{.DewPoint}}</div>
<div>Saturation vapour pressure: {{.SaturationVaporPressure}}</div>
<div>Vapour pressure: {{.VaporPressure}}</div>
<div>Absolute humidity: {{.AbsoluteHumidity}}</div>
<div>Mixing ratio: {{.MixingRatio}}</div>
<div>Enthalpy: {{.Enthalpy}}</div>
{{if .Device}}<div>Device: {{.Device}}</div>{{end}}
{{if .Raw}}<div class="raw">{{.Raw}}</div>{{end}}
</div>
</body>
</html>
`))
