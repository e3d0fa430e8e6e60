package provision

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Camera Uploader</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body {font-family: Arial, Helvetica, sans-serif;}
        input[type=text] {width: 100%; padding: 12px 20px; margin: 8px 0; display: inline-block; border: 1px solid #ccc; box-sizing: border-box;}
        button {background-color: #4CAF50; color: white; padding: 14px 20px; margin: 8px 0; border: none; cursor: pointer; width: 100%;}
        button:hover {opacity: 0.8;}
        .container {padding: 16px;}
        .status {color: #555; font-size: 0.9em;}
    </style>
</head>
<body>
    <h2>Uploader Configuration</h2>
    <form action="/uploader_save" method="post">
        <div class="container">
            <label for="url"><b>POST URL</b></label>
            <input type="text" placeholder="http(s)://example.com/upload" name="url" value="{{.URL}}">
            <label for="vurl"><b>Voltage POST URL</b></label>
            <input type="text" placeholder="http(s)://example.com/voltage" name="vurl" value="{{.VoltageURL}}">
            <label for="interval"><b>Interval (seconds)</b></label>
            <input type="text" placeholder="60" name="interval" value="{{.IntervalSec}}">
            <button type="submit">Save Uploader Settings</button>
        </div>
    </form>
    <div class="container status">
        <p>State: {{.State}}{{if .Profile}} &middot; camera {{.Profile}}{{end}}{{if .Connected}} &middot; online{{else}} &middot; offline{{end}}</p>
        {{if .LastError}}<p>Last error: {{.LastError}}</p>{{end}}
    </div>
</body>
</html>
`))

const savedHTML = `<html><body><h1>Uploader settings saved</h1>` +
	`<p>URL and interval have been updated.</p>` +
	`<p><a href="/">Back</a></p></body></html>`
