package templates

import "devforge/internal/types"

var builtinTemplates = []Entry{
	{
		ID:           "react-app",
		Name:         "React Application",
		Description:  "A modern React application with hooks and context",
		Technologies: []string{"react", "javascript", "css"},
		Directories:  []string{"src", "public"},
		Files: []types.ProjectFile{
			{
				Name: "package.json",
				Path: "package.json",
				Content: `{
  "name": "react-app",
  "version": "1.0.0",
  "description": "A modern React application",
  "main": "src/index.js",
  "scripts": {
    "start": "react-scripts start",
    "build": "react-scripts build",
    "test": "react-scripts test",
    "eject": "react-scripts eject"
  },
  "dependencies": {
    "react": "^18.2.0",
    "react-dom": "^18.2.0",
    "react-scripts": "5.0.1"
  },
  "devDependencies": {
    "@testing-library/jest-dom": "^5.16.5",
    "@testing-library/react": "^13.4.0",
    "@testing-library/user-event": "^13.5.0"
  }
}`,
			},
			{
				Name: "index.js",
				Path: "src/index.js",
				Content: `import React from 'react';
import ReactDOM from 'react-dom/client';
import App from './App';
import './index.css';
const root = ReactDOM.createRoot(document.getElementById('root'));
root.render(
  <React.StrictMode>
    <App />
  </React.StrictMode>
);`,
			},
			{
				Name: "App.js",
				Path: "src/App.js",
				Content: `import React, { useState } from 'react';
import './App.css';
function App() {
  const [count, setCount] = useState(0);
  return (
    <div className="App">
      <header className="App-header">
        <h1>Welcome to React</h1>
        <p>
          Edit <code>src/App.js</code> and save to reload.
        </p>
        <p>
          <button type="button" onClick={() => setCount(count + 1)}>
            Count is: {count}
          </button>
        </p>
      </header>
    </div>
  );
}
export default App;`,
			},
			{
				Name: "App.css",
				Path: "src/App.css",
				Content: `.App {
  text-align: center;
}
.App-header {
  background-color: #282c34;
  min-height: 100vh;
  display: flex;
  flex-direction: column;
  align-items: center;
  justify-content: center;
  font-size: calc(10px + 2vmin);
  color: white;
}
button {
  background-color: #61dafb;
  border: none;
  border-radius: 8px;
  color: #282c34;
  font-size: 16px;
  padding: 10px 20px;
  margin: 10px;
  cursor: pointer;
}`,
			},
			{
				Name: "index.html",
				Path: "public/index.html",
				Content: `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <meta name="theme-color" content="#000000" />
    <title>React App</title>
  </head>
  <body>
    <noscript>You need to enable JavaScript to run this app.</noscript>
    <div id="root"></div>
  </body>
</html>`,
			},
		},
	},
	{
		ID:           "node-api",
		Name:         "Node.js API",
		Description:  "A RESTful API built with Node.js and Express",
		Technologies: []string{"node", "express", "javascript"},
		Directories:  []string{"src", "src/routes"},
		Files: []types.ProjectFile{
			{
				Name: "package.json",
				Path: "package.json",
				Content: `{
  "name": "node-api",
  "version": "1.0.0",
  "description": "A RESTful API built with Node.js and Express",
  "main": "src/index.js",
  "scripts": {
    "start": "node src/index.js",
    "dev": "nodemon src/index.js",
    "test": "jest"
  },
  "dependencies": {
    "express": "^4.18.2",
    "cors": "^2.8.5",
    "helmet": "^7.0.0",
    "morgan": "^1.10.0"
  },
  "devDependencies": {
    "nodemon": "^3.0.1",
    "jest": "^29.6.1",
    "supertest": "^6.3.3"
  }
}`,
			},
			{
				Name: "index.js",
				Path: "src/index.js",
				Content: `const express = require('express');
const cors = require('cors');
const helmet = require('helmet');
const morgan = require('morgan');
const app = express();
const port = process.env.PORT || 3000;
app.use(helmet());
app.use(cors());
app.use(morgan('combined'));
app.use(express.json());
app.get('/', (req, res) => {
  res.json({ message: 'Welcome to the API' });
});
app.use((err, req, res, next) => {
  console.error(err.stack);
  res.status(500).json({ message: 'Something went wrong!' });
});
app.listen(port, () => {
  console.log(` + "`Server running on port ${port}`" + `);
});`,
			},
			{
				Name: "api.js",
				Path: "src/routes/api.js",
				Content: `const express = require('express');
const router = express.Router();
router.get('/items', (req, res) => {
  res.json({ items: [] });
});
router.post('/items', (req, res) => {
  const { name } = req.body;
  if (!name) {
    return res.status(400).json({ message: 'Name is required' });
  }
  res.status(201).json({ message: 'Item created', item: { name } });
});
module.exports = router;`,
			},
		},
	},
	{
		ID:           "full-stack",
		Name:         "Full Stack Application",
		Description:  "A complete full-stack application with React frontend and Node.js backend",
		Technologies: []string{"react", "node", "express", "javascript", "css"},
		Directories:  []string{"server", "client", "client/src"},
		Files: []types.ProjectFile{
			{
				Name: "package.json",
				Path: "package.json",
				Content: `{
  "name": "full-stack-app",
  "version": "1.0.0",
  "description": "A complete full-stack application",
  "main": "server/index.js",
  "scripts": {
    "start": "node server/index.js",
    "dev": "concurrently \"npm run server\" \"npm run client\"",
    "server": "nodemon server/index.js",
    "client": "cd client && npm start",
    "build": "cd client && npm run build",
    "test": "jest"
  },
  "dependencies": {
    "express": "^4.18.2",
    "cors": "^2.8.5",
    "helmet": "^7.0.0",
    "morgan": "^1.10.0"
  },
  "devDependencies": {
    "nodemon": "^3.0.1",
    "concurrently": "^8.2.0",
    "jest": "^29.6.1"
  }
}`,
			},
			{
				Name: "index.js",
				Path: "server/index.js",
				Content: `const express = require('express');
const cors = require('cors');
const helmet = require('helmet');
const morgan = require('morgan');
const path = require('path');
const app = express();
const port = process.env.PORT || 3000;
app.use(helmet());
app.use(cors());
app.use(morgan('combined'));
app.use(express.json());
app.get('/api', (req, res) => {
  res.json({ message: 'API is working' });
});
app.use(express.static(path.join(__dirname, '../client/build')));
app.get('*', (req, res) => {
  res.sendFile(path.join(__dirname, '../client/build', 'index.html'));
});
app.listen(port, () => {
  console.log(` + "`Server running on port ${port}`" + `);
});`,
			},
			{
				Name: "package.json",
				Path: "client/package.json",
				Content: `{
  "name": "client",
  "version": "1.0.0",
  "private": true,
  "dependencies": {
    "react": "^18.2.0",
    "react-dom": "^18.2.0",
    "react-scripts": "5.0.1",
    "axios": "^1.4.0"
  },
  "scripts": {
    "start": "react-scripts start",
    "build": "react-scripts build",
    "test": "react-scripts test"
  },
  "proxy": "http://localhost:3001"
}`,
			},
			{
				Name: "App.js",
				Path: "client/src/App.js",
				Content: `import React, { useState, useEffect } from 'react';
import axios from 'axios';
import './App.css';
function App() {
  const [message, setMessage] = useState('');
  const [loading, setLoading] = useState(true);
  useEffect(() => {
    axios.get('/api')
      .then(response => {
        setMessage(response.data.message);
        setLoading(false);
      })
      .catch(error => {
        console.error('Error fetching data:', error);
        setMessage('Error connecting to the server');
        setLoading(false);
      });
  }, []);
  return (
    <div className="App">
      <header className="App-header">
        <h1>Full Stack Application</h1>
        {loading ? <p>Loading...</p> : <p>{message}</p>}
      </header>
    </div>
  );
}
export default App;`,
			},
		},
	},
}

var builtinTechnologyFiles = map[string][]types.ProjectFile{
	"react": {
		{
			Name: "ExampleComponent.js",
			Path: "src/components/ExampleComponent.js",
			Content: `import React from 'react';
import './ExampleComponent.css';
function ExampleComponent() {
  return (
    <div className="example-component">
      <h2>Example Component</h2>
      <p>This is an example React component.</p>
    </div>
  );
}
export default ExampleComponent;`,
		},
		{
			Name: "ExampleComponent.css",
			Path: "src/components/ExampleComponent.css",
			Content: `.example-component {
  padding: 20px;
  border: 1px solid #ddd;
  border-radius: 8px;
  margin: 10px;
  background-color: #f9f9f9;
}`,
		},
	},
	"express": {
		{
			Name: "example.js",
			Path: "src/routes/example.js",
			Content: `const express = require('express');
const router = express.Router();
router.get('/', (req, res) => {
  res.json({ message: 'Example route' });
});
module.exports = router;`,
		},
	},
	"node": {
		{
			Name: "example.js",
			Path: "src/utils/example.js",
			Content: `function exampleFunction(input) {
  return ` + "`Processed: ${input}`" + `;
}
module.exports = { exampleFunction };`,
		},
	},
}
