package main

// indexPage is the built-in terminal frontend. It speaks the message
// protocol defined in pkg/shared and needs nothing beyond a browser.
const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>BasicTerm</title>
<style>
  body { background: #101418; color: #33ff66; font-family: "Courier New", monospace; margin: 0; }
  #screen { padding: 12px; height: calc(100vh - 60px); overflow-y: auto; white-space: pre-wrap; word-break: break-all; }
  #inputline { display: flex; padding: 8px 12px; border-top: 1px solid #224422; }
  #prompt { white-space: pre; }
  #input { flex: 1; background: transparent; border: none; outline: none; color: inherit; font: inherit; }
  .error { color: #ff5555; }
</style>
</head>
<body>
<div id="screen"></div>
<div id="inputline"><span id="prompt">&gt; </span><input id="input" autocomplete="off" autofocus></div>
<script>
(function () {
  "use strict";
  var screen = document.getElementById("screen");
  var promptEl = document.getElementById("prompt");
  var input = document.getElementById("input");
  var ws = null;

  function print(text, cls) {
    var span = document.createElement("span");
    if (cls) span.className = cls;
    span.textContent = text;
    screen.appendChild(span);
    screen.scrollTop = screen.scrollHeight;
  }

  function handle(msg) {
    switch (msg.type) {
      case 0: // text
        print(msg.content + (msg.noNewline ? "" : "\n"));
        break;
      case 1: // clear
        screen.textContent = "";
        break;
      case 5: // prompt
        promptEl.textContent = msg.promptSymbol || "> ";
        input.disabled = msg.inputEnabled === false;
        break;
      case 6: // error
        print(msg.content + "\n", "error");
        break;
      case 7: // auto execute
        submit(msg.content);
        break;
    }
  }

  function submit(line) {
    if (!ws || ws.readyState !== WebSocket.OPEN) return;
    print(promptEl.textContent + line + "\n");
    ws.send(JSON.stringify({ type: "input", content: line }));
  }

  input.addEventListener("keydown", function (ev) {
    if (ev.key === "Enter") {
      var line = input.value;
      input.value = "";
      submit(line);
    } else if (ev.key === "c" && ev.ctrlKey) {
      ev.preventDefault();
      if (ws && ws.readyState === WebSocket.OPEN) {
        ws.send(JSON.stringify({ type: "interrupt" }));
      }
    }
  });

  fetch("/api/auth/session", { method: "POST" })
    .then(function (r) { return r.json(); })
    .then(function (session) {
      var scheme = location.protocol === "https:" ? "wss" : "ws";
      ws = new WebSocket(scheme + "://" + location.host + "/ws?token=" + encodeURIComponent(session.token));
      ws.onmessage = function (ev) { handle(JSON.parse(ev.data)); };
      ws.onclose = function () { print("\n*** CONNECTION CLOSED ***\n", "error"); };
    })
    .catch(function (err) { print("session setup failed: " + err + "\n", "error"); });
})();
</script>
</body>
</html>
`
