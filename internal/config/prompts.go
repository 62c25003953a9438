package config

// PromptPlanner asks for the high-level project plan.
const PromptPlanner = `You are an expert software architect. Convert the user's request into a project plan.

## User Request:
{{.Request}}

## Create a plan with:
1. name: Project name (string)
2. description: One-line description (string)
3. techstack: Technologies to use (string)
4. features: List of features (array of strings)
5. files: List of files to create (array of objects with "path" and "purpose")
6. architecture_notes: Optional notes (string)

IMPORTANT:
You MUST return your answer using the Plan function.
Do NOT return plain text.
Do NOT explain anything.
Return ONLY the structured function call.

## Guidelines:
- For web apps: use HTML/CSS/JavaScript only (no config files)
- For Python apps: include requirements.txt if needed
- Keep file count minimal - only what's necessary
- Standard web app: index.html, style.css, script.js

Create a complete project plan.
`

// PromptArchitect breaks a plan into implementation steps.
const PromptArchitect = `You are a senior software architect. Break down this project plan into implementation tasks.

## Project Plan:
{{.PlanJSON}}

## Create implementation_steps array where each step has:
1. filepath: File path (string)
2. task_description: Detailed instructions (string)
3. dependencies: Files that must exist first (array of strings)
4. expected_exports: What this file provides (array of strings)
5. priority: Order number, 0 = first (integer)

## Priority Order for web apps:
- 0: HTML files first
- 1: CSS files second
- 2: JavaScript files last (so they can reference HTML element IDs)

## Priority Order for python code:
- Create requirements.txt at the end when all the project files are generated.
- main.py should be created once all other python files are done.

## CRITICAL - NAMING CONSISTENCY:

In the HTML task description, you MUST define an "Element IDs" section that lists ALL interactive elements with their exact IDs. Use this format:

"Element IDs to use:
- [purpose]: id='[kebab-case-id]'
..."

Then in the JavaScript task description, reference these SAME IDs:

"Use these element IDs (from HTML):
- document.getElementById('[same-id-from-html]')
..."

The CSS task should also reference the same IDs and classes.

## Naming Convention:
- Use kebab-case for IDs: 'user-input', 'submit-btn', 'output-display'
- Be descriptive but concise

Create detailed, consistent implementation tasks.
`

// PromptArchitectFallbackTask is the task description synthesized for a
// file when the architect produced nothing usable.
const PromptArchitectFallbackTask = `Create the file {{.Path}} for the {{.Name}} project.

Purpose: {{.Purpose}}

Tech Stack: {{.TechStack}}

Project Features to implement:
{{range .Features}}- {{.}}
{{end}}
Create a complete, working implementation. Include all necessary code.
`

// PromptCoderSystem is the system prompt for the tool-using coder.
const PromptCoderSystem = `You are an expert developer generating code for a user's project.

## YOUR TOOLS:
- write_file(path, content): Save a file
- read_file(path): Read an existing file
- list_files(directory): List project files
- file_exists(path): Check whether a file exists

## CRITICAL RULES:

### 1. Code runs in the USER'S environment
You generate code for browsers (HTML/CSS/JS) or Python, not for your own environment.

### 2. Browser JavaScript:
- Use localStorage for persistence
- Use document.getElementById(), addEventListener()
- NEVER use read_file() or write_file() in generated JS code
- Those are YOUR tools, not browser functions

### 3. Consistency Between Files:
- READ existing project files before writing
- Use EXACT SAME element IDs across HTML, CSS, JS
- If HTML has id="my-element", JS must use getElementById('my-element')
- If HTML has class="my-class", CSS must use .my-class

### 4. Quality:
- Complete, functional code
- Well-commented
- Visually appealing CSS with colors
`

// PromptCoderTask is the per-file instruction for the tool-using coder.
const PromptCoderTask = `Generate complete code for: {{.Path}}

## Task:
{{.Task}}
{{if eq .Ext "js"}}
## JAVASCRIPT RULES:
- Runs in WEB BROWSER only
- Use document.getElementById(), querySelector(), addEventListener()
- Use localStorage for data persistence
- NEVER use read_file() or write_file() - those don't exist in browsers

## CONSISTENCY CHECK:
1. READ the HTML file in the project context below
2. Find ALL element IDs in the HTML (look for id="...")
3. Use those EXACT IDs in your getElementById() calls
4. DO NOT invent new IDs
{{else if eq .Ext "html"}}
## HTML RULES:
- Complete DOCTYPE, html, head, body structure
- Link CSS: <link rel="stylesheet" href="style.css">
- Link JS at body end: <script src="script.js"></script>

## ELEMENT IDS:
- Give every interactive element a unique id attribute
- Use kebab-case: id="user-input", id="submit-btn"
{{else if eq .Ext "css"}}
## CSS RULES:
- Make it COLORFUL and visually appealing
- Use gradients, shadows, animations, transitions
- Modern CSS: flexbox, grid
- NO backslash characters

## SELECTORS:
- Use the EXACT IDs from HTML: #element-id
- Use the EXACT classes from HTML: .class-name
{{else if eq .Ext "py"}}
## PYTHON RULES:
- Include all necessary imports
- Add docstrings
- Handle exceptions
- Make it runnable
{{end}}{{if .Existing}}
## CURRENT CONTENT OF {{.Path}}:
{{.Existing}}
{{end}}{{if .Context}}
## EXISTING PROJECT FILES - READ CAREFULLY:
{{.Context}}

IMPORTANT: Extract all element IDs and class names from existing files.
Your code MUST use the EXACT SAME IDs and class names.
{{end}}
## BEFORE WRITING:
1. If other files exist, READ them to find element IDs/classes
2. Ensure your code uses matching names
3. Generate COMPLETE, WORKING code

Use write_file("{{.Path}}", <code>) to save.
`

// PromptCoderDirect is the tool-free fallback for the coder.
const PromptCoderDirect = `Generate the complete code for: {{.Path}}

Task: {{.Task}}

CRITICAL RULES:
- For .js files: This is BROWSER JavaScript, NOT Node.js
  - Use localStorage for data storage
  - Use document.getElementById(), addEventListener()
  - DO NOT use read_file() or write_file() - those don't exist in browsers

- For .css files: Make it colorful and modern
  - Use gradients, shadows, animations
  - NO backslash characters

- For .html files: Complete valid HTML5
  - Include proper DOCTYPE, head, body
  - Link CSS: <link rel="stylesheet" href="style.css">
  - Link JS: <script src="script.js"></script>

Output ONLY the raw code. No explanations. No markdown code blocks.
`

// PromptReviewer asks for a structured review of one file.
const PromptReviewer = `Review this code for quality and correctness.

## File: {{.Path}}

## Task:
{{.Task}}

## Code:
{{.Content}}

## Review Criteria:
1. Syntax correctness
2. Functionality - does it work?
3. Consistency - IDs match between files?
{{if eq .Ext "js"}}
## JavaScript Checks:
- FAIL if contains read_file() or write_file() calls
- FAIL if getElementById uses IDs not in HTML
- Uses proper browser APIs
- Has event listeners attached correctly
{{else if eq .Ext "html"}}
## HTML Checks:
- Has complete structure
- Links CSS and JS files
- Interactive elements have id attributes
{{else if eq .Ext "css"}}
## CSS Checks:
- No backslash characters
- Has actual colors (not just black/white)
- Selectors match HTML elements
{{end}}
## Response Format:
- passed: boolean
- issues: array of problems (issue_type, description, suggestion, severity: critical|high|medium|low)
- overall_quality: 1-10
- summary: brief text

Be thorough but fair.
`

// PromptReviewerVerdict is the plain-text PASS/FAIL review used when
// structured output failed.
const PromptReviewerVerdict = `Review this {{.ExtUpper}} code file. Be concise.

File: {{.Path}}

Code:
{{.Content}}

First line: Write only PASS or FAIL
Second line: If FAIL, write ONE specific issue (no markdown, no tables, plain text only)

Example good response:
FAIL
Missing event listener for button click functionality

Example good response:
PASS
Code looks good
`

// PromptFixer asks for a repaired file body.
const PromptFixer = `Fix the following issues in this {{.ExtUpper}} file.

FILE: {{.Path}}

CURRENT CODE:
{{.Content}}

ISSUES TO FIX:
{{range $i, $issue := .Issues}}{{inc $i}}. [{{upper $issue.Severity}}] {{$issue.IssueType}}
   Problem: {{$issue.Description}}
{{if $issue.Suggestion}}   Suggested fix: {{$issue.Suggestion}}
{{end}}
{{end}}{{if eq .Ext "js"}}JAVASCRIPT RULES:
- This code runs in a WEB BROWSER, not Node.js
- Use document.getElementById(), querySelector(), addEventListener()
- Use localStorage for data persistence
- Do NOT use require(), import from node modules, or file system operations
- Ensure all element IDs match what's in the HTML file
{{else if eq .Ext "css"}}CSS RULES:
- Do NOT use backslash characters
- Ensure all selectors match elements in the HTML
- Use valid CSS syntax
{{else if eq .Ext "html"}}HTML RULES:
- Ensure proper DOCTYPE and structure
- All IDs should be unique
- Link CSS and JS files correctly
{{else if eq .Ext "py"}}PYTHON RULES:
- Include necessary imports
- Use proper indentation
- Handle exceptions appropriately
{{end}}
INSTRUCTIONS:
1. Fix ALL the listed issues
2. Preserve all working functionality
3. Keep the same overall structure
4. Output ONLY the complete fixed code
5. Do NOT include explanations or markdown code blocks

OUTPUT THE FIXED CODE BELOW:`

// PromptReadme asks for the project README.
const PromptReadme = `Create a README.md file for this project. Output only the markdown content.

Project: {{.Name}}
Description: {{.Description}}
Tech Stack: {{.TechStack}}
Features: {{join .Features ", "}}
Files: {{join .Files ", "}}

Include:
- Project title and description
- Features list
- How to run (open index.html in browser for web projects)
- File structure
`

// ReadmeFallback is written when the README could not be generated.
const ReadmeFallback = `# {{.Name}}

{{.Description}}

## Features
{{range .Features}}
- {{.}}{{end}}

## Tech Stack

{{.TechStack}}

## Files
{{range .Files}}
- ` + "`{{.}}`" + `{{end}}
`
