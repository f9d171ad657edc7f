package server

// chatPageHTML is the embedded chat client served at the root path.
const chatPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>ChatRelay</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; max-width: 700px; }
        #messages {
            border: 1px solid #ccc;
            height: 320px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 280px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        button:disabled { background-color: #aaa; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #users { color: #555; font-size: 0.9em; }
        .system { color: gray; font-style: italic; }
        .private { color: purple; }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>ChatRelay</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="usernameInput" placeholder="Display name...">
        <button id="loginButton" onclick="login()" disabled>Login</button>
    </div>

    <div id="users"></div>
    <div id="messages"></div>

    <div>
        <input type="text" id="messageInput" placeholder="Message, or /msg name text..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const usernameInput = document.getElementById('usernameInput');
        const statusDiv = document.getElementById('status');
        const usersDiv = document.getElementById('users');

        function addMessage(text, cls) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            if (cls) el.className = cls;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function setConnected(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            document.getElementById('loginButton').disabled = !connected;
            messageInput.disabled = true;
            document.getElementById('sendButton').disabled = true;
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(proto + location.host + '/ws');
            ws.onopen = () => { addMessage('Connected to server', 'system'); setConnected(true); };
            ws.onclose = () => { addMessage('Connection closed', 'system'); setConnected(false); ws = null; };
            ws.onmessage = (event) => handleMessage(JSON.parse(event.data));
        }

        function handleMessage(msg) {
            switch (msg.type) {
            case 'login_success':
                addMessage(msg.message, 'system');
                messageInput.disabled = false;
                document.getElementById('sendButton').disabled = false;
                break;
            case 'users_list':
                usersDiv.textContent = 'Online: ' + msg.users.join(', ');
                break;
            case 'user_joined':
            case 'user_left':
                addMessage(msg.message, 'system');
                break;
            case 'chat':
                addMessage(msg.username + ': ' + msg.message);
                break;
            case 'private':
                addMessage('[private] ' + msg.from + ': ' + msg.message, 'private');
                break;
            case 'private_sent':
                addMessage('[private to ' + msg.to + '] ' + msg.message, 'private');
                break;
            case 'typing':
                if (msg.is_typing) addMessage(msg.username + ' is typing...', 'system');
                break;
            case 'error':
                addMessage(msg.message, 'error');
                break;
            }
        }

        function login() {
            if (!ws) return;
            ws.send(JSON.stringify({type: 'login', username: usernameInput.value.trim()}));
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (!text || !ws) return;
            const dm = text.match(/^\/msg (\S+) (.*)$/);
            if (dm) {
                ws.send(JSON.stringify({type: 'private', to: dm[1], message: dm[2]}));
            } else {
                ws.send(JSON.stringify({type: 'chat', message: text}));
            }
            messageInput.value = '';
        }

        messageInput.addEventListener('keypress', (e) => {
            if (e.key === 'Enter') sendMessage();
        });
        usernameInput.addEventListener('keypress', (e) => {
            if (e.key === 'Enter') login();
        });

        connect();
    </script>
</body>
</html>`
