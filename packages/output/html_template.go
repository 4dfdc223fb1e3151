package output

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>domspec Report</title>
    <style>
        :root {
            --bg-primary: #1a1a2e;
            --bg-secondary: #16213e;
            --text-primary: #eee;
            --text-secondary: #aaa;
            --success: #00d26a;
            --error: #ff4757;
            --warning: #ffa502;
            --info: #54a0ff;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            margin: 0;
            padding: 2rem;
        }
        .container { max-width: 1000px; margin: 0 auto; }
        h1 { margin-bottom: 0.5rem; }
        .meta { color: var(--text-secondary); margin-bottom: 2rem; }
        .summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(120px, 1fr)); gap: 1rem; margin-bottom: 1rem; }
        .card { background: var(--bg-secondary); padding: 1rem; border-radius: 8px; text-align: center; }
        .card .value { font-size: 1.5rem; font-weight: bold; }
        .card.passed .value { color: var(--success); }
        .card.failed .value { color: var(--error); }
        .card.skipped .value { color: var(--warning); }
        .bar { display: flex; height: 8px; border-radius: 4px; overflow: hidden; margin-bottom: 2rem; background: var(--bg-secondary); }
        .bar .passed { background: var(--success); }
        .bar .failed { background: var(--error); }
        .bar .skipped { background: var(--warning); }
        .test { background: var(--bg-secondary); border-radius: 8px; padding: 1rem; margin-bottom: 0.75rem; border-left: 4px solid var(--info); }
        .test.passed { border-left-color: var(--success); }
        .test.failed { border-left-color: var(--error); }
        .test.skipped { border-left-color: var(--warning); }
        .test .name { font-weight: bold; }
        .test .file, .test .subject { color: var(--text-secondary); font-size: 0.9rem; }
        .tag { background: #0f3460; border-radius: 4px; padding: 0 0.4rem; margin-left: 0.3rem; font-size: 0.8rem; }
        code { font-family: SFMono-Regular, Menlo, monospace; }
        table { width: 100%; border-collapse: collapse; margin-top: 0.75rem; }
        th, td { padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; }
        th { background: #0f3460; }
        tr:not(:last-child) { border-bottom: 1px solid #2d3748; }
        .ok { color: var(--success); }
        .ko { color: var(--error); }
        .error { color: var(--error); margin-top: 0.5rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>domspec Report</h1>
        <div class="meta">{{if .Version}}{{.Version}} · {{end}}{{.Time}} · {{printf "%.0f" .Duration}}ms</div>
        <div class="summary">
            <div class="card"><div class="value">{{.Summary.Total}}</div><div>Total</div></div>
            <div class="card passed"><div class="value">{{.Summary.Passed}}</div><div>Passed</div></div>
            <div class="card failed"><div class="value">{{.Summary.Failed}}</div><div>Failed</div></div>
            <div class="card skipped"><div class="value">{{.Summary.Skipped}}</div><div>Skipped</div></div>
        </div>
        <div class="bar">
            <div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
            <div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
            <div class="skipped" style="width: {{printf "%.1f" .SkippedPercent}}%"></div>
        </div>
        {{range .Tests}}
        <div class="test {{.StatusClass}}">
            <div class="name">{{.Name}}{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>
            <div class="file">{{if .Suite}}{{.Suite}} · {{end}}{{.File}} · {{printf "%.0f" .Duration}}ms</div>
            {{if .Skipped}}<div class="subject">skipped{{if .SkipReason}}: {{.SkipReason}}{{end}}</div>{{end}}
            {{if .Subject}}<div class="subject">{{.SubjectKind}}: <code>{{.Subject}}</code></div>{{end}}
            {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
            {{if .Assertions}}
            <table>
                <thead>
                    <tr><th></th><th>Assertion</th><th>Expected</th><th>Actual</th><th>Message</th></tr>
                </thead>
                <tbody>
                    {{range .Assertions}}
                    <tr>
                        <td class="{{if .Passed}}ok{{else}}ko{{end}}">{{if .Passed}}✓{{else}}✗{{end}}</td>
                        <td><code>{{.Operator}}</code></td>
                        <td><code>{{.ExpectedStr}}</code></td>
                        <td><code>{{.ActualStr}}</code></td>
                        <td>{{.Message}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            {{end}}
        </div>
        {{end}}
    </div>
</body>
</html>`
