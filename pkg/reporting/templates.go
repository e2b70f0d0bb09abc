/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: HTML template for the analysis dashboard.
*/

package reporting

// dashboardTemplate is the single-page dashboard
const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - {{.Report.RunID}}</title>
    <style>
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: #f4f5f9;
            color: #333;
            margin: 0;
        }

        .container {
            max-width: 1400px;
            margin: 0 auto;
            padding: 20px;
        }

        .header {
            background: #fff;
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
            box-shadow: 0 4px 16px rgba(0, 0, 0, 0.08);
        }

        .stats {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 16px;
            margin-top: 16px;
        }

        .stat {
            background: #eef0f8;
            border-radius: 8px;
            padding: 12px;
        }

        .stat .value {
            font-size: 1.6rem;
            font-weight: 700;
        }

        table {
            width: 100%;
            border-collapse: collapse;
            background: #fff;
            border-radius: 12px;
            overflow: hidden;
        }

        th, td {
            padding: 8px 12px;
            border-bottom: 1px solid #e2e8f0;
            text-align: left;
            vertical-align: top;
        }

        th {
            background: #4a5568;
            color: #fff;
        }

        .failed {
            background: #fff5f5;
        }

        .error {
            color: #c53030;
        }

        .warning {
            color: #b7791f;
            font-size: 0.85rem;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
            <p>Run {{.Report.RunID}} started {{.Report.StartedAt.Format "2006-01-02 15:04:05"}}, took {{.Report.Duration}}</p>
            <p>Sources: {{range $i, $s := .Report.Sources}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
            <div class="stats">
                <div class="stat"><div>Records</div><div class="value">{{.Report.Records}}</div></div>
                {{if .Report.InvalidRecords}}<div class="stat"><div>Skipped records</div><div class="value">{{.Report.InvalidRecords}}</div></div>{{end}}
                <div class="stat"><div>Fields</div><div class="value">{{len .Fields}}</div></div>
                <div class="stat"><div>Failed fields</div><div class="value">{{.Failed}}</div></div>
                <div class="stat"><div>Rejected values</div><div class="value">{{.Rejected}}</div></div>
            </div>
        </div>
        <table>
            <thead>
                <tr>
                    <th>Path</th>
                    <th>State</th>
                    <th>Chain</th>
                    <th>Accepted</th>
                    <th>Rejected</th>
                    <th>Top values</th>
                </tr>
            </thead>
            <tbody>
            {{range .Fields}}
                <tr{{if .Error}} class="failed"{{end}}>
                    <td><code>{{.Path}}</code></td>
                    <td>{{.State}}</td>
                    <td>{{if .Chain}}{{.Chain}}{{else}}<em>raw</em>{{end}}</td>
                    <td>{{.Accepted}}</td>
                    <td>{{.Rejected}}</td>
                    <td>
                        {{range .Top}}<div><code>{{.Value}}</code> × {{.Frequency}}</div>{{end}}
                        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
                        {{range .Warnings}}<div class="warning">{{.}}</div>{{end}}
                    </td>
                </tr>
            {{end}}
            </tbody>
        </table>
        <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
    </div>
</body>
</html>
`
