package schema

const (
	ActionSearch    = "search"
	ActionCalculate = "calculate"
	ActionRespond   = "respond"

	AgentSearch  = "search"
	AgentAnalyze = "analyze"
	AgentChat    = "chat"
)

// ReasoningStep is one think step of a ReAct loop.
type ReasoningStep struct {
	Thought     string `json:"thought" jsonschema_description:"The agent's reasoning about what to do next" validate:"required"`
	Action      string `json:"action" jsonschema:"enum=search,enum=calculate,enum=respond" jsonschema_description:"The action to take: search, calculate, or respond with final answer" validate:"oneof=search calculate respond"`
	ActionInput string `json:"action_input" jsonschema_description:"Query for search, expression for calculate, or the final answer"`
}

type FinalResponse struct {
	Answer     string   `json:"answer" jsonschema_description:"The final answer to the user's question" validate:"required"`
	Sources    []string `json:"sources,omitempty" jsonschema_description:"Sources or tools used to derive the answer"`
	Confidence float64  `json:"confidence" jsonschema:"minimum=0,maximum=1,default=0.8" jsonschema_description:"Confidence in the answer" validate:"gte=0,lte=1"`
}

func (f *FinalResponse) SetDefaults() {
	f.Confidence = 0.8
}

type RoutingDecision struct {
	Intent        string  `json:"intent" jsonschema_description:"Detected user intent (e.g. search_info, analyze_data, general_chat)" validate:"required"`
	SelectedAgent string  `json:"selected_agent" jsonschema:"enum=search,enum=analyze,enum=chat" jsonschema_description:"The sub-agent to route to" validate:"oneof=search analyze chat"`
	Reasoning     string  `json:"reasoning" jsonschema_description:"Brief explanation of why this agent was selected"`
	Confidence    float64 `json:"confidence" jsonschema:"minimum=0,maximum=1" jsonschema_description:"Confidence in the routing decision" validate:"gte=0,lte=1"`
}

type SearchAgentOutput struct {
	QueryUnderstanding string   `json:"query_understanding" jsonschema_description:"How the agent understood the search query"`
	Results            []string `json:"results" jsonschema_description:"Search results or findings"`
	Sources            []string `json:"sources,omitempty" jsonschema_description:"Sources of information"`
	Summary            string   `json:"summary" jsonschema_description:"Summary of findings" validate:"required"`
}

type AnalyzeAgentOutput struct {
	AnalysisType    string   `json:"analysis_type" jsonschema_description:"Type of analysis performed (comparison, breakdown, evaluation)"`
	KeyFindings     []string `json:"key_findings" jsonschema_description:"Key findings from the analysis"`
	Conclusion      string   `json:"conclusion" jsonschema_description:"Overall conclusion" validate:"required"`
	Recommendations []string `json:"recommendations,omitempty" jsonschema_description:"Recommendations based on analysis"`
}

type ChatAgentOutput struct {
	Response          string   `json:"response" jsonschema_description:"The conversational response" validate:"required"`
	Tone              string   `json:"tone" jsonschema:"enum=friendly,enum=professional,enum=casual,default=friendly" jsonschema_description:"Tone of the response" validate:"oneof=friendly professional casual"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty" jsonschema_description:"Suggested follow-up questions"`
}

func (c *ChatAgentOutput) SetDefaults() {
	c.Tone = "friendly"
}

type AgentResponse struct {
	AgentName    string                 `json:"agent_name"`
	Success      bool                   `json:"success"`
	ResponseText string                 `json:"response_text"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
